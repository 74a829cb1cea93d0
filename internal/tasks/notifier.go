package tasks

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"

	"github.com/moustaphandiaye22/fotolouDiay-sub000/internal/models"
)

// ModerationNotifier turns listing lifecycle events into queued email tasks.
// It satisfies the listing service's notifier interface; a lost enqueue only
// costs a notification, never the mutation itself, so failures are logged and
// swallowed.
type ModerationNotifier struct {
	client *asynq.Client
}

// NewModerationNotifier creates a notifier that enqueues via the given client.
func NewModerationNotifier(client *asynq.Client) *ModerationNotifier {
	return &ModerationNotifier{client: client}
}

// ListingSubmitted queues a "received, under review" email to the owner.
func (n *ModerationNotifier) ListingSubmitted(ctx context.Context, listing *models.Listing) {
	n.enqueue(ctx, listing)
}

// ListingModerated queues the approve/reject decision email to the owner.
func (n *ModerationNotifier) ListingModerated(ctx context.Context, listing *models.Listing) {
	n.enqueue(ctx, listing)
}

func (n *ModerationNotifier) enqueue(ctx context.Context, listing *models.Listing) {
	if n.client == nil || listing == nil {
		return
	}
	payload, err := json.Marshal(ModerationEmailPayload{
		OwnerID: listing.OwnerID,
		Listing: *listing,
	})
	if err != nil {
		log.Printf("failed to marshal moderation email payload for listing %d: %v", listing.ID, err)
		return
	}
	task := asynq.NewTask(TypeModerationEmail, payload)
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue("default")); err != nil {
		log.Printf("failed to enqueue moderation email for listing %d: %v", listing.ID, err)
	}
}
