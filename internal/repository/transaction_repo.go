package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maobits/coban365-sub000/internal/domain"
)

type TransactionRepository interface {
	// Submit persists an accepted settlement record. The insert is the
	// single atomic write of a submission; everything after it is
	// best-effort bookkeeping.
	Submit(ctx context.Context, rec *domain.TransactionRecord) (int64, error)

	ListTypes(ctx context.Context, correspondentID int64, category string) ([]*domain.TransactionType, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Submit(ctx context.Context, rec *domain.TransactionRecord) (int64, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions (
			reference, correspondent_id, third_party_id, till_id, actor_id,
			kind, cost, polarity, bank_commission, dispersion, total_commission,
			cash_tag, delivery_method, accumulated_commission_portion, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW())
		RETURNING id, created_at
	`,
		rec.Reference, rec.CorrespondentID, rec.ThirdPartyID, rec.TillID, rec.ActorID,
		rec.Kind, rec.Cost, rec.Polarity, rec.BankCommission, rec.Dispersion, rec.TotalCommission,
		rec.CashTag, rec.DeliveryMethod, rec.AccumulatedCommissionPortion,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	return rec.ID, nil
}

func (r *transactionRepo) ListTypes(ctx context.Context, correspondentID int64, category string) ([]*domain.TransactionType, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, category
		FROM transaction_types
		WHERE correspondent_id = $1 AND category = $2
		ORDER BY name ASC
	`, correspondentID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*domain.TransactionType
	for rows.Next() {
		var t domain.TransactionType
		if err := rows.Scan(&t.ID, &t.Name, &t.Category); err != nil {
			return nil, err
		}
		types = append(types, &t)
	}

	return types, rows.Err()
}
