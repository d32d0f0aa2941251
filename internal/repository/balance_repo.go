package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maobits/coban365-sub000/internal/balance"
	"github.com/maobits/coban365-sub000/internal/domain"
)

type BalanceRepository interface {
	// GetThirdPartyBalance derives the live capital snapshot for a
	// correspondent/third-party pair from its prior movement sums.
	GetThirdPartyBalance(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.ThirdParty, domain.BalanceSnapshot, error)
}

type balanceRepo struct {
	db *pgxpool.Pool
}

func NewBalanceRepo(db *pgxpool.Pool) BalanceRepository {
	return &balanceRepo{db: db}
}

func (r *balanceRepo) GetThirdPartyBalance(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.ThirdParty, domain.BalanceSnapshot, error) {
	var tp domain.ThirdParty

	err := r.db.QueryRow(ctx, `
		SELECT id, correspondent_id, name, credit_limit, available_credit, state
		FROM third_parties
		WHERE id = $1 AND correspondent_id = $2
	`, thirdPartyID, correspondentID).Scan(
		&tp.ID, &tp.CorrespondentID, &tp.Name, &tp.CreditLimit, &tp.AvailableCredit, &tp.State,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.BalanceSnapshot{}, domain.ErrNotFound
		}
		return nil, domain.BalanceSnapshot{}, err
	}

	var agg domain.MovementAggregates
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = $3 THEN cost ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = $4 THEN cost ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = $5 THEN cost ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN kind = $6 THEN cost ELSE 0 END), 0)
		FROM transactions
		WHERE correspondent_id = $1 AND third_party_id = $2
	`, correspondentID, thirdPartyID,
		domain.KindDebtToThirdParty, domain.KindChargeToThirdParty,
		domain.KindLoanToThirdParty, domain.KindLoanFromThirdParty,
	).Scan(&agg.DebtToThirdParty, &agg.ChargeToThirdParty, &agg.LoanToThirdParty, &agg.LoanFromThirdParty)
	if err != nil {
		return nil, domain.BalanceSnapshot{}, err
	}

	snap := balance.Resolve(agg, tp.CreditLimit, tp.AvailableCredit)
	return &tp, snap, nil
}
