package rpc

import (
	"errors"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest  Algorithm = "fastest"
	AlgorithmFailover Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
)

// Endpoint represents a single RPC endpoint with its probe results.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	Healthy     bool
}

// Pick selects an endpoint from the probed list according to algo.
// Failover keeps the configured order and takes the first healthy node;
// fastest scores healthy, non-stale nodes by latency and block recency.
func Pick(endpoints []Endpoint, algo Algorithm) (*Endpoint, error) {
	if algo == AlgorithmFailover {
		for i := range endpoints {
			if endpoints[i].Healthy {
				return &endpoints[i], nil
			}
		}
		return nil, ErrNoHealthyRPC
	}

	var bestBlock uint64
	for _, e := range endpoints {
		if e.Healthy && e.BlockNumber > bestBlock {
			bestBlock = e.BlockNumber
		}
	}

	var winner *Endpoint
	var bestScore float64
	for i := range endpoints {
		e := &endpoints[i]
		if !e.Healthy || isStale(e, bestBlock) {
			continue
		}
		s := score(e, bestBlock)
		if winner == nil || s > bestScore {
			winner = e
			bestScore = s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}
	return winner, nil
}

// --- scoring ---

func isStale(e *Endpoint, bestBlock uint64) bool {
	return bestBlock > 0 && bestBlock-e.BlockNumber > staleBlockThreshold
}

func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64

	// Latency score: higher = faster.
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else {
		s += 1000.0
	}

	// Loses a point per block behind the best node.
	if bestBlock > 0 {
		s -= float64(bestBlock - e.BlockNumber)
	}
	return s
}
