package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ticket-wallet-ledger/internal/domain/ledger"
	"github.com/ticket-wallet-ledger/internal/pagination"
)

const defaultArchivePageSize = 20

// ArchiveServiceImpl implements the ArchiveService interface
type ArchiveServiceImpl struct {
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

func NewArchiveService(logger *slog.Logger, ledgerRepo ledger.Repository) ArchiveService {
	return &ArchiveServiceImpl{
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

func (s *ArchiveServiceImpl) GetArchivedTransaction(ctx context.Context, transactionID uuid.UUID) (*ledger.Entry, error) {
	entry, err := s.ledgerRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound{}) {
			s.logger.Info("Archived transaction not found", "transaction_id", transactionID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get archived transaction", "transaction_id", transactionID.String(), "error", err)
		return nil, err
	}
	return entry, nil
}

// GetWalletHistory pages through a wallet's archived transactions, newest first.
func (s *ArchiveServiceImpl) GetWalletHistory(ctx context.Context, walletID uuid.UUID, params pagination.Params) (pagination.Page[*ledger.Entry], error) {
	params = params.Normalize(defaultArchivePageSize)

	entries, err := s.ledgerRepo.GetByWalletID(ctx, walletID, params.PageSize, params.Offset())
	if err != nil {
		return pagination.Page[*ledger.Entry]{}, err
	}

	total, err := s.ledgerRepo.CountByWalletID(ctx, walletID)
	if err != nil {
		return pagination.Page[*ledger.Entry]{}, err
	}

	return pagination.NewPage(entries, total, params), nil
}
