package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maobits/coban365-sub000/internal/domain"
)

type BankDebtRepository interface {
	GetBankDebt(ctx context.Context, correspondentID int64) (*domain.BankDebtSummary, error)
}

type bankDebtRepo struct {
	db *pgxpool.Pool
}

func NewBankDebtRepo(db *pgxpool.Pool) BankDebtRepository {
	return &bankDebtRepo{db: db}
}

// GetBankDebt returns the correspondent's live position against the bank:
// its outstanding debt plus the income/withdrawal sums across its tills.
func (r *bankDebtRepo) GetBankDebt(ctx context.Context, correspondentID int64) (*domain.BankDebtSummary, error) {
	var s domain.BankDebtSummary

	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(bp.debt_to_bank, 0),
		       COALESCE(SUM(CASE WHEN x.polarity = 1 THEN x.cost ELSE 0 END), 0)  AS incomes,
		       COALESCE(SUM(CASE WHEN x.polarity = -1 THEN x.cost ELSE 0 END), 0) AS withdrawals
		FROM correspondents c
		LEFT JOIN bank_positions bp ON bp.correspondent_id = c.id
		LEFT JOIN transactions x ON x.correspondent_id = c.id
		WHERE c.id = $1
		GROUP BY bp.debt_to_bank
	`, correspondentID).Scan(&s.DebtToBank, &s.Incomes, &s.Withdrawals)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	s.NetCash = s.Incomes - s.Withdrawals
	return &s, nil
}
