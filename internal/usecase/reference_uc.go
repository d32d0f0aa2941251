package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/domain"
	"github.com/maobits/coban365-sub000/internal/repository"
)

// ReferenceCacheTTL bounds how long reference data may serve from Redis.
// Transaction types and third-party lists are stable; live financial state
// is never cached.
const ReferenceCacheTTL = 5 * time.Minute

// ReferenceUsecase serves the slow-moving lists the settlement form needs:
// transaction types and third parties per correspondent.
type ReferenceUsecase struct {
	transactionRepo repository.TransactionRepository
	thirdPartyRepo  repository.ThirdPartyRepository
	redisClient     *redis.Client
	logger          *zap.Logger
}

func NewReferenceUsecase(
	transactionRepo repository.TransactionRepository,
	thirdPartyRepo repository.ThirdPartyRepository,
	redisClient *redis.Client,
	logger *zap.Logger,
) *ReferenceUsecase {
	return &ReferenceUsecase{
		transactionRepo: transactionRepo,
		thirdPartyRepo:  thirdPartyRepo,
		redisClient:     redisClient,
		logger:          logger,
	}
}

// ListTransactionTypes returns the configured types for a correspondent and
// category, served from cache when fresh.
func (uc *ReferenceUsecase) ListTransactionTypes(ctx context.Context, correspondentID int64, category string) ([]*domain.TransactionType, error) {
	cacheKey := fmt.Sprintf("reference:types:%d:%s", correspondentID, category)

	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var cached []*domain.TransactionType
			if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
				return cached, nil
			}
		}
	}

	types, err := uc.transactionRepo.ListTypes(ctx, correspondentID, category)
	if err != nil {
		return nil, fmt.Errorf("list transaction types: %w", err)
	}

	uc.cache(ctx, cacheKey, types)
	return types, nil
}

// ListThirdParties returns the correspondent's counterparties, served from
// cache when fresh.
func (uc *ReferenceUsecase) ListThirdParties(ctx context.Context, correspondentID int64) ([]*domain.ThirdParty, error) {
	cacheKey := fmt.Sprintf("reference:third_parties:%d", correspondentID)

	if uc.redisClient != nil {
		if val, err := uc.redisClient.Get(ctx, cacheKey).Result(); err == nil {
			var cached []*domain.ThirdParty
			if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
				return cached, nil
			}
		}
	}

	parties, err := uc.thirdPartyRepo.List(ctx, correspondentID)
	if err != nil {
		return nil, fmt.Errorf("list third parties: %w", err)
	}

	uc.cache(ctx, cacheKey, parties)
	return parties, nil
}

// InvalidateCorrespondent drops the correspondent's cached reference lists.
func (uc *ReferenceUsecase) InvalidateCorrespondent(ctx context.Context, correspondentID int64) {
	if uc.redisClient == nil {
		return
	}

	keys := []string{
		fmt.Sprintf("reference:third_parties:%d", correspondentID),
	}
	if err := uc.redisClient.Del(ctx, keys...).Err(); err != nil {
		uc.logger.Warn("reference cache invalidation failed",
			zap.Int64("correspondent_id", correspondentID),
			zap.Error(err))
	}
}

func (uc *ReferenceUsecase) cache(ctx context.Context, key string, value any) {
	if uc.redisClient == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := uc.redisClient.Set(ctx, key, data, ReferenceCacheTTL).Err(); err != nil {
		uc.logger.Warn("reference cache write failed", zap.String("key", key), zap.Error(err))
	}
}
