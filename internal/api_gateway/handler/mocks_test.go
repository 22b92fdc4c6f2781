package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ticket-wallet-ledger/internal/billing/allocations"
	"github.com/ticket-wallet-ledger/internal/billing/reconciliation"
	"github.com/ticket-wallet-ledger/internal/billing/walletledger"
	"github.com/ticket-wallet-ledger/internal/domain/allocation"
	"github.com/ticket-wallet-ledger/internal/domain/commerce"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/domain/shared"
	"github.com/ticket-wallet-ledger/internal/domain/wallet"
	"github.com/ticket-wallet-ledger/internal/pagination"
)

type MockWalletService struct {
	mock.Mock
}

func (m *MockWalletService) GetBalance(ctx context.Context, key wallet.Key) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletService) AdjustBalance(ctx context.Context, adj walletledger.Adjustment) (*wallet.Transaction, error) {
	args := m.Called(ctx, adj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Transaction), args.Error(1)
}

func (m *MockWalletService) VerifyChain(ctx context.Context, key wallet.Key) (*walletledger.ChainReport, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*walletledger.ChainReport), args.Error(1)
}

type MockAdjustmentRequestService struct {
	mock.Mock
}

func (m *MockAdjustmentRequestService) SubmitAdjustment(ctx context.Context, request *shared.AdjustmentRequest) error {
	return m.Called(ctx, request).Error(0)
}

type MockArchiveService struct {
	mock.Mock
}

func (m *MockArchiveService) GetArchivedTransaction(ctx context.Context, transactionID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockArchiveService) GetWalletHistory(ctx context.Context, walletID uuid.UUID, params pagination.Params) (pagination.Page[*ledger.Entry], error) {
	args := m.Called(ctx, walletID, params)
	return args.Get(0).(pagination.Page[*ledger.Entry]), args.Error(1)
}

type MockAllocationService struct {
	mock.Mock
}

func (m *MockAllocationService) Create(ctx context.Context, tenantID, userID string, ticketID int64, quantity int) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, userID, ticketID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationService) GetActive(ctx context.Context, tenantID, userID string, ticketID int64) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, userID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationService) Release(ctx context.Context, tenantID, userID string, ticketID int64) (*allocations.ReleaseResult, error) {
	args := m.Called(ctx, tenantID, userID, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocations.ReleaseResult), args.Error(1)
}

func (m *MockAllocationService) Update(ctx context.Context, tenantID string, id uuid.UUID, patch allocation.Patch) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationService) Consume(ctx context.Context, tenantID string, id uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationService) List(ctx context.Context, tenantID string, filter allocation.Filter, params pagination.Params) (pagination.Page[*allocation.Allocation], error) {
	args := m.Called(ctx, tenantID, filter, params)
	return args.Get(0).(pagination.Page[*allocation.Allocation]), args.Error(1)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) ListWalletTransactions(ctx context.Context, tenantID string, filter commerce.FeedFilter, params pagination.Params) (pagination.Page[reconciliation.FeedEntry], error) {
	args := m.Called(ctx, tenantID, filter, params)
	return args.Get(0).(pagination.Page[reconciliation.FeedEntry]), args.Error(1)
}

func (m *MockReconciliationService) SalesReport(ctx context.Context, tenantID string, filter commerce.SalesFilter, sort reconciliation.Sort, params pagination.Params) (pagination.Page[reconciliation.SalesReportEntry], error) {
	args := m.Called(ctx, tenantID, filter, sort, params)
	return args.Get(0).(pagination.Page[reconciliation.SalesReportEntry]), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeResponse unmarshals the envelope and, when out is non-nil, its data field.
func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()
	var envelope struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), rr.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}
