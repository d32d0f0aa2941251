package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maobits/coban365-sub000/internal/domain"
)

type CommissionRepository interface {
	GetCommissionLedger(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.CommissionLedgerEntry, error)
	// SubtractCommission reduces the accumulated fee debt by amount,
	// clamping the ledger at zero.
	SubtractCommission(ctx context.Context, correspondentID, thirdPartyID, amount int64) error
}

type commissionRepo struct {
	db *pgxpool.Pool
}

func NewCommissionRepo(db *pgxpool.Pool) CommissionRepository {
	return &commissionRepo{db: db}
}

// GetCommissionLedger returns the pair's accumulated commission debt. A pair
// with no ledger row simply owes nothing.
func (r *commissionRepo) GetCommissionLedger(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.CommissionLedgerEntry, error) {
	entry := domain.CommissionLedgerEntry{
		CorrespondentID: correspondentID,
		ThirdPartyID:    thirdPartyID,
	}

	err := r.db.QueryRow(ctx, `
		SELECT total_commission
		FROM commission_ledgers
		WHERE correspondent_id = $1 AND third_party_id = $2
	`, correspondentID, thirdPartyID).Scan(&entry.TotalCommission)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entry, nil
		}
		return nil, err
	}

	return &entry, nil
}

func (r *commissionRepo) SubtractCommission(ctx context.Context, correspondentID, thirdPartyID, amount int64) error {
	if amount <= 0 {
		return errors.New("subtract amount must be positive")
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE commission_ledgers
		SET total_commission = GREATEST(0, total_commission - $3),
		    updated_at = NOW()
		WHERE correspondent_id = $1 AND third_party_id = $2
	`, correspondentID, thirdPartyID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}
