// internal/ledger/verifier_test.go
package ledger

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/models"
)

type fakeClient struct {
	settlements map[string]*SettlementRecord
	accounts    map[string]bool
	calls       int
}

func (f *fakeClient) GetSettlement(ctx context.Context, ref string) (*SettlementRecord, error) {
	f.calls++
	record, ok := f.settlements[ref]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "settlement %q not found", ref)
	}
	return record, nil
}

func (f *fakeClient) AccountExists(ctx context.Context, address string) (bool, error) {
	return f.accounts[address], nil
}

const payout = "payout-address-1"

func nativeSettlement(ref string, amount uint64) *SettlementRecord {
	return &SettlementRecord{
		Ref:          ref,
		AccountKeys:  []string{"buyer-address", payout},
		PreBalances:  []uint64{5_000_000, 100},
		PostBalances: []uint64{5_000_000 - amount, 100 + amount},
	}
}

func TestVerifyNativeExactAmount(t *testing.T) {
	client := &fakeClient{settlements: map[string]*SettlementRecord{
		"sig1": nativeSettlement("sig1", 1_000_000),
	}}
	v := NewVerifier(client)

	err := v.Verify(context.Background(), "sig1", 1_000_000, payout, models.AssetKindNative)
	assert.NoError(t, err)
	assert.Equal(t, 1, client.calls)
}

func TestVerifyToleranceBoundary(t *testing.T) {
	client := &fakeClient{settlements: map[string]*SettlementRecord{
		"exact95": nativeSettlement("exact95", 950_000),
		"under95": nativeSettlement("under95", 949_000),
	}}
	v := NewVerifier(client)

	// Exactly 95% of the expected amount passes.
	assert.NoError(t, v.Verify(context.Background(), "exact95", 1_000_000, payout, models.AssetKindNative))

	// 94.9% does not.
	err := v.Verify(context.Background(), "under95", 1_000_000, payout, models.AssetKindNative)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientPayment))
	assert.Contains(t, err.Error(), "1000000")
	assert.Contains(t, err.Error(), "949000")
}

func TestVerifySettlementNotFound(t *testing.T) {
	v := NewVerifier(&fakeClient{settlements: map[string]*SettlementRecord{}})

	err := v.Verify(context.Background(), "missing", 1, payout, models.AssetKindNative)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestVerifyExecutionError(t *testing.T) {
	failure := "instruction error at index 0"
	record := nativeSettlement("failed", 1_000_000)
	record.Err = &failure

	v := NewVerifier(&fakeClient{settlements: map[string]*SettlementRecord{"failed": record}})

	err := v.Verify(context.Background(), "failed", 1_000_000, payout, models.AssetKindNative)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransactionFailed))
}

func TestVerifyRecipientAbsent(t *testing.T) {
	record := &SettlementRecord{
		Ref:          "elsewhere",
		AccountKeys:  []string{"buyer-address", "someone-else"},
		PreBalances:  []uint64{10, 0},
		PostBalances: []uint64{0, 10},
	}
	v := NewVerifier(&fakeClient{settlements: map[string]*SettlementRecord{"elsewhere": record}})

	err := v.Verify(context.Background(), "elsewhere", 10, payout, models.AssetKindNative)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientPayment))
}

func TestVerifySecondaryAsset(t *testing.T) {
	record := &SettlementRecord{
		Ref:         "tok1",
		AccountKeys: []string{"buyer-address", payout},
		PreTokenBalances: []TokenBalance{
			{AccountIndex: 1, Owner: payout, Asset: "asset-mint", Amount: "250"},
		},
		PostTokenBalances: []TokenBalance{
			{AccountIndex: 1, Owner: payout, Asset: "asset-mint", Amount: strconv.Itoa(250 + 500_000)},
		},
	}
	v := NewVerifier(&fakeClient{settlements: map[string]*SettlementRecord{"tok1": record}})

	assert.NoError(t, v.Verify(context.Background(), "tok1", 500_000, payout, models.AssetKindSecondary))

	err := v.Verify(context.Background(), "tok1", 600_000, payout, models.AssetKindSecondary)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientPayment))
}

func TestVerifySecondaryUnparseableAmount(t *testing.T) {
	record := &SettlementRecord{
		Ref:         "garbled",
		AccountKeys: []string{"buyer-address", payout},
		PostTokenBalances: []TokenBalance{
			{AccountIndex: 1, Owner: payout, Asset: "asset-mint", Amount: "not-a-number"},
		},
	}
	v := NewVerifier(&fakeClient{settlements: map[string]*SettlementRecord{"garbled": record}})

	// A node serving garbage balance data must not be read as "no payment".
	err := v.Verify(context.Background(), "garbled", 500_000, payout, models.AssetKindSecondary)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindLedgerUnavailable))
	assert.False(t, apperrors.IsKind(err, apperrors.KindInsufficientPayment))
}
