package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/outbox"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
)

// ErrMalformedPayload marks outbox messages that can never be published.
var ErrMalformedPayload = errors.New("malformed outbox payload")

// LedgerPublisher publishes outbox messages to ledger
type LedgerPublisher interface {
	PublishToLedger(ctx context.Context, message *outbox.Message) error
}

// LedgerPublisherImpl archives committed wallet transactions in MongoDB and announces them
// on the wallet events topic.
type LedgerPublisherImpl struct {
	outboxRepo outbox.Repository
	ledgerRepo ledger.Repository
	events     producers.MessagePublisher
	logger     *slog.Logger
}

func NewLedgerPublisher(
	outboxRepo outbox.Repository,
	ledgerRepo ledger.Repository,
	events producers.MessagePublisher,
	logger *slog.Logger,
) LedgerPublisher {
	return &LedgerPublisherImpl{
		outboxRepo: outboxRepo,
		ledgerRepo: ledgerRepo,
		events:     events,
		logger:     logger,
	}
}

// PublishToLedger archives then publishes one message and marks it PROCESSED. Each step
// tolerates being repeated, so a failure part way through is retried from the start.
func (p *LedgerPublisherImpl) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	entry, err := message.Entry()
	if err != nil {
		p.logger.Error("Failed to unmarshal ledger entry from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrMalformedPayload, message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	if err := p.ledgerRepo.Create(ctx, entry); err != nil {
		if !errors.Is(err, ledger.ErrDuplicateEntry{}) {
			logger.Error("Failed to archive ledger entry in MongoDB", "transaction_id", entry.TransactionID, "error", err)
			return fmt.Errorf("failed to archive ledger entry %s: %w", entry.TransactionID, err)
		}
		logger.Info("Ledger entry already archived", "transaction_id", entry.TransactionID)
	}

	if err := p.events.Publish(ctx, message.PartitionKey(), entry); err != nil {
		logger.Error("Failed to publish wallet event", "transaction_id", entry.TransactionID, "error", err)
		return fmt.Errorf("failed to publish wallet event %s: %w", entry.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("ledger write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	logger.Info("Outbox message published and marked as PROCESSED", "outbox_id", message.ID, "transaction_id", message.TransactionID)
	return nil
}
