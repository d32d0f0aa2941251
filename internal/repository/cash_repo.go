package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maobits/coban365-sub000/internal/domain"
)

type CashRepository interface {
	GetCashSummary(ctx context.Context, tillID int64) (*domain.Till, error)
}

type cashRepo struct {
	db *pgxpool.Pool
}

func NewCashRepo(db *pgxpool.Pool) CashRepository {
	return &cashRepo{db: db}
}

// GetCashSummary returns the till with its live income/withdrawal sums.
// The orchestrator re-pulls this at the start of every submission attempt
// and again after a commit, so the balance is never stale.
func (r *cashRepo) GetCashSummary(ctx context.Context, tillID int64) (*domain.Till, error) {
	var t domain.Till

	err := r.db.QueryRow(ctx, `
		SELECT t.id, t.name, t.capacity, t.initial_amount,
		       COALESCE(SUM(CASE WHEN x.polarity = 1 THEN x.cost ELSE 0 END), 0)  AS incomes_total,
		       COALESCE(SUM(CASE WHEN x.polarity = -1 THEN x.cost ELSE 0 END), 0) AS withdrawals_total
		FROM tills t
		LEFT JOIN transactions x ON x.till_id = t.id
		WHERE t.id = $1
		GROUP BY t.id, t.name, t.capacity, t.initial_amount
	`, tillID).Scan(&t.ID, &t.Name, &t.Capacity, &t.InitialAmount, &t.IncomesTotal, &t.WithdrawalsTotal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &t, nil
}
