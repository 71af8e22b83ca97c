// internal/ledger/verifier.go
package ledger

import (
	"context"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/models"
)

// PaymentTolerance is the fraction of the expected amount that must actually
// arrive. The 5% allowance absorbs fee and rounding noise on the ledger side.
// This is deliberate policy; do not adjust it silently.
const PaymentTolerance = 0.95

type Verifier struct {
	client Client
}

func NewVerifier(client Client) *Verifier {
	return &Verifier{client: client}
}

// Verify confirms that the referenced settlement moved at least
// expectedAmount × PaymentTolerance to the recipient in the given asset.
// It performs no writes; callers own all state transitions.
func (v *Verifier) Verify(ctx context.Context, settlementRef string, expectedAmount uint64, recipient string, asset models.AssetKind) error {
	record, err := v.client.GetSettlement(ctx, settlementRef)
	if err != nil {
		return err
	}

	if record.Err != nil {
		return apperrors.New(apperrors.KindTransactionFailed, "settlement %q failed on ledger: %s", settlementRef, *record.Err)
	}

	var observed uint64
	switch asset {
	case models.AssetKindSecondary:
		observed, err = record.secondaryDelta(recipient)
		if err != nil {
			// Garbage balance data from the node is a node problem, not
			// evidence of non-payment.
			return apperrors.Wrap(apperrors.KindLedgerUnavailable, err, "settlement %q has unparseable balance data", settlementRef)
		}
	default:
		observed = record.nativeDelta(recipient)
	}

	if float64(observed) < float64(expectedAmount)*PaymentTolerance {
		return apperrors.New(apperrors.KindInsufficientPayment,
			"insufficient payment: expected %d base units to %s, observed %d", expectedAmount, recipient, observed)
	}

	return nil
}
