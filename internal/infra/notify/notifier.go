package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shorestay/internal/app/policies"
	"shorestay/internal/infra/broker/kafka"
)

const defaultAttempts = 3

// Notifier publishes booking confirmations to the notifications topic, where
// the mailer service picks them up. Publishing retries a fixed number of
// times with a short pause between attempts.
type Notifier struct {
	Producer *kafka.Producer
	Topic    string
	Attempts int
	Delay    time.Duration
	Logger   *slog.Logger
}

type confirmationMessage struct {
	MessageID     string `json:"message_id"`
	Recipient     string `json:"recipient"`
	CC            string `json:"cc,omitempty"`
	GuestName     string `json:"guest_name"`
	ListingTitle  string `json:"listing_title"`
	Location      string `json:"location"`
	CheckIn       string `json:"check_in"`
	CheckOut      string `json:"check_out"`
	Total         string `json:"total"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
}

func (n *Notifier) Send(ctx context.Context, note policies.BookingConfirmation) error {
	payload, err := json.Marshal(confirmationMessage{
		MessageID:     uuid.NewString(),
		Recipient:     note.Recipient,
		CC:            note.CC,
		GuestName:     note.GuestName,
		ListingTitle:  note.ListingTitle,
		Location:      note.Location,
		CheckIn:       note.CheckIn.UTC().Format(time.RFC3339),
		CheckOut:      note.CheckOut.UTC().Format(time.RFC3339),
		Total:         note.Total.Decimal(),
		Currency:      note.Total.Currency,
		TransactionID: note.TransactionID,
	})
	if err != nil {
		return err
	}
	headers := map[string]string{"content-type": "application/json"}
	return retry(ctx, n.attempts(), n.delay(), func() error {
		err := n.Producer.Publish(ctx, n.Topic, note.TransactionID, payload, headers)
		if err != nil && n.Logger != nil {
			n.Logger.Warn("confirmation publish failed",
				slog.String("transaction_id", note.TransactionID),
				slog.String("error", err.Error()))
		}
		return err
	})
}

func (n *Notifier) attempts() int {
	if n.Attempts <= 0 {
		return defaultAttempts
	}
	return n.Attempts
}

func (n *Notifier) delay() time.Duration {
	if n.Delay <= 0 {
		return 200 * time.Millisecond
	}
	return n.Delay
}
