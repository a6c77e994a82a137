// Package chain handles address validation for the ledger node and the
// conversion of a real-world look-back horizon into a block window.
package chain

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// addressRegex matches a 20-byte hex address with 0x prefix.
// Example: 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

var (
	ErrInvalidAddress  = errors.New("chain: invalid address")
	ErrInvalidInterval = errors.New("chain: block interval must be positive")
)

// ParseAddress validates a hex address and returns its EIP-55 checksummed
// form. Mixed-case input is not checksum-verified; the node matches on bytes.
func ParseAddress(addr string) (string, error) {
	if !addressRegex.MatchString(addr) {
		return "", fmt.Errorf("%w: %q (expected 0x followed by 40 hex digits)",
			ErrInvalidAddress, addr)
	}
	return common.HexToAddress(addr).Hex(), nil
}

// WindowBlocks translates a horizon into a block count using an assumed
// average block interval. 30 days at 2s per block is 1,296,000 blocks.
func WindowBlocks(horizon, blockInterval time.Duration) (uint64, error) {
	if blockInterval <= 0 {
		return 0, ErrInvalidInterval
	}
	if horizon <= 0 {
		return 0, nil
	}
	return uint64(horizon / blockInterval), nil
}

// WindowStart returns the first block of a trailing window ending at head,
// clamped to genesis when the chain is younger than the window.
func WindowStart(head, window uint64) uint64 {
	if head > window {
		return head - window
	}
	return 0
}
