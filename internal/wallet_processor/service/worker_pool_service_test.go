package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
)

// MockProcessingService mocks the ProcessingService interface
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessAdjustment(ctx context.Context, request *shared.AdjustmentRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func TestWorkerPoolProcessingService_ProcessAdjustment(t *testing.T) {
	logger := slog.Default()
	request := &shared.AdjustmentRequest{
		RequestID:       uuid.New(),
		TenantID:        "acme",
		AppID:           "box-office",
		UserID:          "user-1",
		Amount:          5,
		TransactionType: shared.TransactionTypePurchase,
		CorrelationID:   "corr1",
	}

	tests := []struct {
		name          string
		baseErr       error
		expectedError string
	}{
		{name: "successful processing"},
		{name: "processing error", baseErr: errors.New("processing error"), expectedError: "processing error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBaseService := &MockProcessingService{}
			workerPoolService, err := NewWorkerPoolProcessingService(mockBaseService, WorkerPoolConfig{Size: 2}, logger)
			require.NoError(t, err)
			defer workerPoolService.Shutdown()

			// The worker receives a copy of the request
			mockBaseService.On("ProcessAdjustment", mock.Anything, mock.MatchedBy(func(r *shared.AdjustmentRequest) bool {
				return r != request && r.RequestID == request.RequestID
			})).Return(tt.baseErr).Once()

			err = workerPoolService.ProcessAdjustment(context.Background(), request)

			if tt.expectedError != "" {
				assert.EqualError(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolProcessingService_ContextCanceled(t *testing.T) {
	mockBaseService := &MockProcessingService{}
	workerPoolService, err := NewWorkerPoolProcessingService(mockBaseService, WorkerPoolConfig{Size: 1}, slog.Default())
	require.NoError(t, err)
	defer workerPoolService.Shutdown()

	release := make(chan struct{})
	mockBaseService.On("ProcessAdjustment", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-release
	}).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = workerPoolService.ProcessAdjustment(ctx, &shared.AdjustmentRequest{RequestID: uuid.New()})
	close(release)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerPoolProcessingService_Concurrency(t *testing.T) {
	mockBaseService := &MockProcessingService{}
	workerPoolService, err := NewWorkerPoolProcessingService(mockBaseService, WorkerPoolConfig{Size: 5}, slog.Default())
	require.NoError(t, err)
	defer workerPoolService.Shutdown()

	var counter int64
	mockBaseService.On("ProcessAdjustment", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&counter, 1)
	}).Return(nil)

	numRequests := 10
	var wg sync.WaitGroup
	wg.Add(numRequests)

	for i := 0; i < numRequests; i++ {
		go func(i int) {
			defer wg.Done()
			request := &shared.AdjustmentRequest{
				RequestID:       uuid.New(),
				TenantID:        "acme",
				AppID:           "box-office",
				UserID:          fmt.Sprintf("user-%d", i),
				Amount:          1,
				TransactionType: shared.TransactionTypePurchase,
			}
			assert.NoError(t, workerPoolService.ProcessAdjustment(context.Background(), request))
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int64(numRequests), atomic.LoadInt64(&counter))
	assert.Equal(t, 5, workerPoolService.Capacity())
}
