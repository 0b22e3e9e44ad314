// Package rpc probes candidate RPC endpoints and picks the one to dial.
package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 5 * time.Second

// Ping dials url and measures one eth_blockNumber round trip.
func Ping(ctx context.Context, url string) (time.Duration, uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return 0, 0, err
	}
	defer client.Close()

	start := time.Now()
	block, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, 0, err
	}
	return time.Since(start), block, nil
}

// Probe pings all urls in parallel and returns one Endpoint per url, in order.
func Probe(ctx context.Context, urls []string) []Endpoint {
	endpoints := make([]Endpoint, len(urls))
	var g errgroup.Group
	for i, url := range urls {
		g.Go(func() error {
			latency, block, err := Ping(ctx, url)
			if err != nil {
				log.Debug("RPC probe failed", "url", url, "err", err)
			}
			endpoints[i] = Endpoint{
				URL:         url,
				Latency:     latency,
				BlockNumber: block,
				Healthy:     err == nil,
			}
			return nil
		})
	}
	_ = g.Wait()
	return endpoints
}

// Best probes urls and returns the winning endpoint URL. A single candidate
// is returned as-is without probing.
func Best(ctx context.Context, urls []string, algo Algorithm) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	winner, err := Pick(Probe(ctx, urls), algo)
	if err != nil {
		return "", fmt.Errorf("%w (tried %d endpoints)", err, len(urls))
	}
	log.Debug("Selected RPC endpoint", "url", winner.URL, "latency", winner.Latency, "block", winner.BlockNumber)
	return winner.URL, nil
}
