package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maobits/coban365-sub000/internal/domain"
)

type ThirdPartyRepository interface {
	List(ctx context.Context, correspondentID int64) ([]*domain.ThirdParty, error)
	GetCorrespondent(ctx context.Context, correspondentID int64) (*domain.Correspondent, error)
}

type thirdPartyRepo struct {
	db *pgxpool.Pool
}

func NewThirdPartyRepo(db *pgxpool.Pool) ThirdPartyRepository {
	return &thirdPartyRepo{db: db}
}

func (r *thirdPartyRepo) List(ctx context.Context, correspondentID int64) ([]*domain.ThirdParty, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, correspondent_id, name, credit_limit, available_credit, state
		FROM third_parties
		WHERE correspondent_id = $1
		ORDER BY name ASC
	`, correspondentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []*domain.ThirdParty
	for rows.Next() {
		var tp domain.ThirdParty
		if err := rows.Scan(&tp.ID, &tp.CorrespondentID, &tp.Name, &tp.CreditLimit, &tp.AvailableCredit, &tp.State); err != nil {
			return nil, err
		}
		parties = append(parties, &tp)
	}

	return parties, rows.Err()
}

func (r *thirdPartyRepo) GetCorrespondent(ctx context.Context, correspondentID int64) (*domain.Correspondent, error) {
	var c domain.Correspondent

	err := r.db.QueryRow(ctx, `
		SELECT id, name, credit_limit, premium
		FROM correspondents
		WHERE id = $1
	`, correspondentID).Scan(&c.ID, &c.Name, &c.CreditLimit, &c.Premium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &c, nil
}
