// internal/ledger/types.go
package ledger

import (
	"fmt"
	"strconv"
)

// SettlementRecord is one finalized transaction as reported by the ledger.
// Balances are snapshots taken immediately before and after execution, in
// base units, index-aligned with AccountKeys.
type SettlementRecord struct {
	Ref               string         `json:"ref"`
	Slot              uint64         `json:"slot"`
	Err               *string        `json:"err"`
	AccountKeys       []string       `json:"accountKeys"`
	PreBalances       []uint64       `json:"preBalances"`
	PostBalances      []uint64       `json:"postBalances"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

// TokenBalance is one secondary-asset balance entry. Amount is a decimal
// string of base units, the way the ledger serializes large integers.
type TokenBalance struct {
	AccountIndex int    `json:"accountIndex"`
	Owner        string `json:"owner"`
	Asset        string `json:"asset"`
	Amount       string `json:"amount"`
}

// Units parses the decimal amount. An unparseable amount is a node data
// error, not a zero balance; callers must surface it.
func (b TokenBalance) Units() (uint64, error) {
	n, err := strconv.ParseUint(b.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token balance amount %q: %w", b.Amount, err)
	}
	return n, nil
}

// AccountInfo is the fetched state of one ledger account. A receipt account
// holds no data the server reads; only its existence matters.
type AccountInfo struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
}

// nativeDelta returns how many base units the recipient's native balance grew
// during the settlement, or 0 if the recipient does not appear.
func (r *SettlementRecord) nativeDelta(recipient string) uint64 {
	for i, key := range r.AccountKeys {
		if key != recipient {
			continue
		}
		if i >= len(r.PreBalances) || i >= len(r.PostBalances) {
			return 0
		}
		if r.PostBalances[i] <= r.PreBalances[i] {
			return 0
		}
		return r.PostBalances[i] - r.PreBalances[i]
	}
	return 0
}

// secondaryDelta returns the growth of the recipient's secondary-asset
// balance entries during the settlement.
func (r *SettlementRecord) secondaryDelta(recipient string) (uint64, error) {
	var pre, post uint64
	for _, b := range r.PreTokenBalances {
		if b.Owner == recipient {
			units, err := b.Units()
			if err != nil {
				return 0, err
			}
			pre += units
		}
	}
	for _, b := range r.PostTokenBalances {
		if b.Owner == recipient {
			units, err := b.Units()
			if err != nil {
				return 0, err
			}
			post += units
		}
	}
	if post <= pre {
		return 0, nil
	}
	return post - pre, nil
}
