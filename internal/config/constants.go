package config

import "time"

// Timeout constants used across cmd and the TUI.
const (
	RPCSelectTimeout     = 10 * time.Second // endpoint probe before dialing
	ConnectTimeout       = 30 * time.Second // wallet unlock + initial snapshot
	RefreshTimeout       = 20 * time.Second // one snapshot batch
	TxConfirmTimeout     = 3 * time.Minute  // default finality bound
	ReceiptPollInterval  = 2 * time.Second  // receipt polling cadence
	DefaultStatusDisplay = 3 * time.Second  // Success/Error shown before reverting to Idle
)
