// Package worker provides the async advisory dispatch worker.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/mailer"
	"github.com/opensource-finance/harrier/internal/policy"
)

// Worker consumes generated advisories from the EventBus, applies the
// dispatch policy, and mails allowed advisories to the branch contact.
// Every outcome is recorded as a dispatch row, including suppressions.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	gate   *policy.Gate
	sender domain.MailSender

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a dispatch worker. A nil sender records every
// allowed advisory as failed with a configuration detail instead of
// attempting delivery.
func NewWorker(bus domain.EventBus, repo domain.Repository, gate *policy.Gate, sender domain.MailSender) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		gate:   gate,
		sender: sender,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the advisory topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAdvisoryGenerated, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("dispatch worker started", "topic", domain.TopicAdvisoryGenerated)
	return nil
}

// handleMessage processes one advisory event end to end.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var event domain.AdvisoryEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse advisory event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing advisory dispatch",
		"advisory_id", event.AdvisoryID,
		"branch", event.Branch,
	)

	record := &domain.DispatchRecord{
		ID:         uuid.New().String(),
		AdvisoryID: event.AdvisoryID,
		Branch:     event.Branch,
		Recipient:  event.Contact.Email,
		CreatedAt:  time.Now().UTC(),
	}

	record.Status, record.Detail = w.dispatch(ctx, &event)

	if w.repo != nil {
		if err := w.repo.SaveDispatch(ctx, record); err != nil {
			slog.Error("failed to save dispatch record",
				"advisory_id", event.AdvisoryID,
				"error", err,
			)
		}
	}

	if record.Status == domain.DispatchSent {
		if payload, err := json.Marshal(record); err == nil {
			if err := w.bus.Publish(ctx, domain.TopicAdvisoryDispatched, payload); err != nil {
				slog.Error("failed to publish dispatch result",
					"advisory_id", event.AdvisoryID,
					"error", err,
				)
			}
		}
	}

	slog.Info("advisory dispatch processed",
		"advisory_id", event.AdvisoryID,
		"branch", event.Branch,
		"status", record.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// dispatch decides and, when allowed, delivers one advisory. It
// returns the dispatch status with a human-readable detail for
// anything other than a clean send.
func (w *Worker) dispatch(ctx context.Context, event *domain.AdvisoryEvent) (string, string) {
	adv := &domain.AdvisoryRecord{
		ID:              event.AdvisoryID,
		Branch:          event.Branch,
		AdvisoryContent: event.Content,
	}

	allowed, err := w.gate.Allow(policy.InputFor(adv, event.FraudTypes, event.AnomalyCount, event.TotalCount))
	if err != nil {
		return domain.DispatchFailed, "policy evaluation: " + err.Error()
	}
	if !allowed {
		return domain.DispatchSuppressed, "dispatch policy denied"
	}

	msg, err := mailer.Compose(event.Branch, event.Contact, event.Content)
	if err != nil {
		return domain.DispatchFailed, "compose: " + err.Error()
	}

	if w.sender == nil {
		return domain.DispatchFailed, "no mail sender configured"
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		return domain.DispatchFailed, "send: " + err.Error()
	}

	return domain.DispatchSent, ""
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("dispatch worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
