package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/platform/messaging/producers"
	"github.com/ticket-wallet-ledger/internal/wallet_processor/service"
)

type FailureRecorderImpl struct {
	dlq    producers.DeadLetterPublisher
	logger *slog.Logger
}

// NewFailureRecorder records rejected requests on the dead letter topic. dlq may be nil,
// in which case failures are only logged.
func NewFailureRecorder(dlq producers.DeadLetterPublisher, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		dlq:    dlq,
		logger: logger,
	}
}

func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.AdjustmentRequest, reason shared.FailureReason, cause error) error {
	logger := r.logger
	if request.CorrelationID != "" {
		logger = r.logger.With("correlation_id", request.CorrelationID)
	}

	detail := string(reason)
	if cause != nil {
		detail = fmt.Sprintf("%s: %v", reason, cause)
	}

	logger.Warn("Recording rejected adjustment request",
		"request_id", request.RequestID.String(),
		"tenant_id", request.TenantID,
		"user_id", request.UserID,
		"reason", detail,
	)

	if r.dlq == nil {
		return nil
	}

	value, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal rejected request %s: %w", request.RequestID.String(), err)
	}

	if err := r.dlq.PublishToDLQ(ctx, request.RequestID.String(), value, detail); err != nil {
		if errors.Is(err, producers.ErrDLQDisabled) {
			return nil
		}
		return err
	}
	return nil
}
