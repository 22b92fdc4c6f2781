package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

// AdjustmentHandler handles wallet adjustment request messages from Kafka
type AdjustmentHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewAdjustmentHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *AdjustmentHandler {
	return &AdjustmentHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage decodes one message and processes it. A nil return commits the offset.
func (h *AdjustmentHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.AdjustmentRequest
	if err := json.Unmarshal(value, &request); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal adjustment request from Kafka message", err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received adjustment request for processing",
		"request_id", request.RequestID.String(),
		"tenant_id", request.TenantID,
		"user_id", request.UserID,
		"transaction_type", request.TransactionType,
		"amount", request.Amount,
	)

	if err := h.processingService.ProcessAdjustment(ctx, &request); err != nil {
		logger.Error("Failed to process adjustment request",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("processing adjustment request %s failed: %w", request.RequestID.String(), err)
	}

	return nil
}

// deadLetter parks an unprocessable message. The offset is committed only when the DLQ accepted it.
func (h *AdjustmentHandler) deadLetter(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			return nil
		}
	}
	return fmt.Errorf("failed to unmarshal message value: %w", cause)
}
