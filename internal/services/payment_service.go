package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/apperr"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/policy"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/providers"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/store"
	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/utils"
)

// paymentTTL is how long a PENDING payment stays claimable before the sweep
// expires it.
const paymentTTL = 30 * time.Minute

// splitAmount computes the seller credit and platform commission for a
// payment amount in whole CFA francs. The commission is 5%, taken with
// integer arithmetic so the two parts always sum exactly to the amount.
func splitAmount(amount int64) (credit, commission int64) {
	credit = amount * 95 / 100
	commission = amount - credit
	return credit, commission
}

// InitiatePaymentInput carries the buyer's purchase request.
type InitiatePaymentInput struct {
	BuyerID   string
	ListingID int64
	Amount    int64
	Provider  models.PaymentProvider
	Metadata  map[string]any
}

// InitiatePaymentResult is what the buyer needs to complete checkout.
type InitiatePaymentResult struct {
	PaymentID   string    `json:"payment_id"`
	Reference   string    `json:"reference"`
	PaymentURL  string    `json:"payment_url"`
	ProviderRef string    `json:"provider_ref"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IPaymentService defines the payment lifecycle operations.
type IPaymentService interface {
	Initiate(ctx context.Context, in InitiatePaymentInput) (*InitiatePaymentResult, error)
	Confirm(ctx context.Context, reference string, confirmation map[string]any) (*models.Payment, error)
	Cancel(ctx context.Context, reference, reason string) (bool, error)
	Status(ctx context.Context, reference string) (*models.Payment, error)
	SweepExpired(ctx context.Context) (int64, error)
}

// paymentService implements IPaymentService.
type paymentService struct {
	payments store.IPaymentStore
	listings store.IListingStore
	registry *providers.Registry
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(payments store.IPaymentStore, listings store.IListingStore, registry *providers.Registry) IPaymentService {
	return &paymentService{payments: payments, listings: listings, registry: registry}
}

// Initiate validates the purchase, persists a PENDING payment, then dispatches
// to the provider gateway. All preconditions are checked before anything is
// persisted; a payment row only ever exists for a request that passed
// validation. If dispatch fails afterwards, the row is kept and marked FAILED
// for audit.
func (s *paymentService) Initiate(ctx context.Context, in InitiatePaymentInput) (*InitiatePaymentResult, error) {
	if in.BuyerID == "" {
		return nil, apperr.Validation("buyer is required", nil)
	}
	if in.Amount <= 0 {
		return nil, apperr.Validation("amount must be a positive amount", map[string]string{"amount": "must be > 0"})
	}
	if !in.Provider.Valid() || !s.registry.Supports(in.Provider) {
		return nil, apperr.UnsupportedProvider(string(in.Provider))
	}

	listing, err := s.listings.FindByID(ctx, in.ListingID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("listing")
		}
		return nil, apperr.Storage("listing lookup", err)
	}
	if listing.Status != models.ListingApproved {
		return nil, apperr.InvalidState("listing is not available for purchase")
	}
	if !policy.CanPurchase(in.BuyerID, listing.OwnerID) {
		return nil, apperr.Forbidden("you cannot buy your own listing")
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:        uuid.NewString(),
		Reference: utils.NewPaymentReference(),
		Amount:    in.Amount,
		Provider:  in.Provider,
		BuyerID:   in.BuyerID,
		ListingID: in.ListingID,
		Status:    models.PaymentPending,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(paymentTTL),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, apperr.Storage("payment creation", err)
	}

	result, err := s.registry.Dispatch(ctx, in.Provider, providers.DispatchRequest{
		Reference: payment.Reference,
		Amount:    payment.Amount,
		BuyerID:   payment.BuyerID,
	})
	if err != nil {
		s.markDispatchFailed(ctx, payment.Reference, err)
		if apperr.KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("provider dispatch failed for payment %s: %w", payment.Reference, err)
	}

	err = s.payments.MergeMetadata(ctx, payment.Reference, map[string]any{
		"payment_url":  result.PaymentURL,
		"provider_ref": result.ProviderRef,
	})
	if err != nil {
		log.Printf("CRITICAL: payment %s dispatched to %s but metadata update failed: %v", payment.Reference, in.Provider, err)
		return nil, apperr.Storage("payment metadata update", err)
	}

	return &InitiatePaymentResult{
		PaymentID:   payment.ID,
		Reference:   payment.Reference,
		PaymentURL:  result.PaymentURL,
		ProviderRef: result.ProviderRef,
		ExpiresAt:   payment.ExpiresAt,
	}, nil
}

// markDispatchFailed moves a just-created payment to FAILED after a dispatch
// error. The row is retained for audit.
func (s *paymentService) markDispatchFailed(ctx context.Context, reference string, cause error) {
	_, err := s.payments.TransitionFromPending(ctx, reference, models.PaymentFailed, nil, map[string]any{
		"failure_reason": cause.Error(),
	})
	if err != nil {
		log.Printf("CRITICAL: failed to mark payment %s FAILED after dispatch error: %v (dispatch error: %v)", reference, err, cause)
	}
}

// externalRef pulls a provider transaction identifier out of a confirmation
// payload when the webhook supplied one.
func externalRef(confirmation map[string]any) string {
	for _, key := range []string{"external_ref", "transaction_id", "provider_ref"} {
		if value, ok := confirmation[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

// Confirm settles a payment. Confirming an already-CONFIRMED payment is a
// no-op success so webhook retries stay harmless; any other terminal state is
// an InvalidState error. The status flip and both ledger entries commit in a
// single conditional write, so a racing cancel cannot interleave.
func (s *paymentService) Confirm(ctx context.Context, reference string, confirmation map[string]any) (*models.Payment, error) {
	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("payment")
		}
		return nil, apperr.Storage("payment lookup", err)
	}

	switch payment.Status {
	case models.PaymentConfirmed:
		return payment, nil
	case models.PaymentPending:
		// fall through to the conditional transition
	default:
		return nil, apperr.InvalidState(fmt.Sprintf("payment %s cannot be confirmed from status %s", reference, payment.Status))
	}

	now := time.Now().UTC()
	credit, commission := splitAmount(payment.Amount)
	transactions := []models.Transaction{
		{
			ID:          uuid.NewString(),
			Type:        models.TxnDebit,
			Amount:      payment.Amount,
			Status:      models.TxnSuccess,
			ExternalRef: externalRef(confirmation),
			Details:     confirmation,
			CreatedAt:   now,
		},
		{
			ID:     uuid.NewString(),
			Type:   models.TxnCredit,
			Amount: credit,
			Status: models.TxnSuccess,
			Details: map[string]any{
				"commission":      commission,
				"commission_rate": "5%",
			},
			CreatedAt: now,
		},
	}

	updated, err := s.payments.TransitionFromPending(ctx, reference, models.PaymentConfirmed, transactions, nil)
	if err == nil {
		return updated, nil
	}
	if errors.Is(err, store.ErrNotPending) {
		// Lost a race. Re-read to tell a concurrent confirm (fine) from a
		// concurrent cancel/expiry (conflict).
		current, readErr := s.payments.FindByReference(ctx, reference)
		if readErr == nil && current.Status == models.PaymentConfirmed {
			return current, nil
		}
		return nil, apperr.InvalidState(fmt.Sprintf("payment %s is no longer pending", reference))
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("payment")
	}
	return nil, apperr.Storage("payment confirmation", err)
}

// Cancel voids a PENDING payment and records a full-amount REFUND entry.
// Returns false, without error, when the reference is unknown or the payment
// is not cancellable; callers map false to "not found or not cancellable".
func (s *paymentService) Cancel(ctx context.Context, reference, reason string) (bool, error) {
	if reason == "" {
		reason = "cancelled by request"
	}
	refund := models.Transaction{
		ID:     uuid.NewString(),
		Type:   models.TxnRefund,
		Amount: 0, // set below from the stored amount
		Status: models.TxnSuccess,
		Details: map[string]any{
			"reason": reason,
		},
		CreatedAt: time.Now().UTC(),
	}

	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, apperr.Storage("payment lookup", err)
	}
	if payment.Status != models.PaymentPending {
		return false, nil
	}
	refund.Amount = payment.Amount

	_, err = s.payments.TransitionFromPending(ctx, reference, models.PaymentCancelled, []models.Transaction{refund}, nil)
	if err != nil {
		if errors.Is(err, store.ErrNotPending) || errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, apperr.Storage("payment cancellation", err)
	}
	return true, nil
}

// Status returns the full payment detail including its transactions.
func (s *paymentService) Status(ctx context.Context, reference string) (*models.Payment, error) {
	payment, err := s.payments.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("payment")
		}
		return nil, apperr.Storage("payment lookup", err)
	}
	return payment, nil
}

// SweepExpired transitions stale PENDING payments past their deadline to
// EXPIRED and returns the number changed. Idempotent.
func (s *paymentService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.payments.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		return 0, apperr.Storage("payment expiry sweep", err)
	}
	if count > 0 {
		log.Printf("payment sweep expired %d payment(s)", count)
	}
	return count, nil
}
