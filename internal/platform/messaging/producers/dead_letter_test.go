package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestDLQ(w KafkaWriter) *DLQProducer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &DLQProducer{logger: logger, writer: w, dlqTopic: "wallet_adjustment_requests_dlq", sourceTopic: "wallet_adjustment_requests"}
}

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulPublishToDLQ", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newTestDLQ(mockWriter)

		key := "original-key"
		original := []byte(`{"tenant_id":""}`)
		reason := "invalid_request"

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != key {
				return false
			}
			var dl DeadLetter
			if err := json.Unmarshal(msgs[0].Value, &dl); err != nil {
				return false
			}
			return dl.OriginalKey == key &&
				dl.OriginalValue == string(original) &&
				dl.SourceTopic == "wallet_adjustment_requests" &&
				dl.DLQReason == reason &&
				dl.Timestamp != "" &&
				len(msgs[0].Headers) == 2
		})).Return(nil).Once()

		require.NoError(t, producer.PublishToDLQ(ctx, key, original, reason))
		mockWriter.AssertExpectations(t)
	})

	t.Run("WriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := newTestDLQ(mockWriter)
		writerError := errors.New("kafka DLQ write error")

		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.PublishToDLQ(ctx, "fail-key", []byte("fail_payload"), "writer_error")
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("Disabled", func(t *testing.T) {
		var disabled *DLQProducer
		assert.ErrorIs(t, disabled.PublishToDLQ(ctx, "k", nil, "r"), ErrDLQDisabled)
		assert.ErrorIs(t, newTestDLQ(nil).PublishToDLQ(ctx, "k", nil, "r"), ErrDLQDisabled)
	})
}

func TestDLQProducer_Close(t *testing.T) {
	t.Run("SuccessfulClose", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		mockWriter.On("Close").Return(nil).Once()
		require.NoError(t, newTestDLQ(mockWriter).Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("CloseReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		closeError := errors.New("kafka DLQ close error")
		mockWriter.On("Close").Return(closeError).Once()
		assert.ErrorIs(t, newTestDLQ(mockWriter).Close(), closeError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("Disabled", func(t *testing.T) {
		var disabled *DLQProducer
		assert.NoError(t, disabled.Close())
	})
}

var _ DeadLetterPublisher = (*DLQProducer)(nil)
