package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/balance"
	"github.com/maobits/coban365-sub000/internal/cash"
	"github.com/maobits/coban365-sub000/internal/classifier"
	"github.com/maobits/coban365-sub000/internal/domain"
	"github.com/maobits/coban365-sub000/internal/fees"
	publisher "github.com/maobits/coban365-sub000/internal/pub"
	"github.com/maobits/coban365-sub000/internal/repository"
	"github.com/maobits/coban365-sub000/internal/validator"
	"github.com/maobits/coban365-sub000/pkg/utils"
)

const (
	// CommissionLookupTimeout bounds commission ledger reads; past it the
	// call fails explicitly instead of hanging the submission.
	CommissionLookupTimeout = 15 * time.Second

	referencePrefix = "STL"
)

// SubmitRequest is one settlement submission attempt from a form session.
type SubmitRequest struct {
	// SessionID identifies the form instance; at most one submission may be
	// in flight per session.
	SessionID string `json:"session_id"`
	// ActorID is the cashier performing the movement.
	ActorID string `json:"actor_id"`

	CorrespondentID int64 `json:"correspondent_id"`
	ThirdPartyID    int64 `json:"third_party_id"`
	TillID          int64 `json:"till_id"`

	TransactionTypeName string `json:"transaction_type_name"`
	DeliveryMethod      string `json:"delivery_method"`
	Amount              int64  `json:"amount"`
}

// Validate rejects structurally broken requests before any upstream read.
func (r *SubmitRequest) Validate() error {
	if r.SessionID == "" {
		return errors.New("session_id is required")
	}
	if r.ActorID == "" {
		return errors.New("actor_id is required")
	}
	if r.CorrespondentID <= 0 || r.ThirdPartyID <= 0 || r.TillID <= 0 {
		return errors.New("correspondent_id, third_party_id and till_id are required")
	}
	if r.TransactionTypeName == "" {
		return errors.New("transaction_type_name is required")
	}
	return nil
}

// SubmitResult is returned for an accepted, committed submission.
type SubmitResult struct {
	Record            *domain.TransactionRecord `json:"record"`
	Quote             fees.Quote                `json:"quote"`
	CommissionPortion int64                     `json:"commission_portion"`
	Position          balance.Position          `json:"position"`
}

// PanelView is the live pair position rendered on the settlement form.
type PanelView struct {
	Position    balance.Position        `json:"position"`
	Till        *domain.Till            `json:"till"`
	CashBalance int64                   `json:"cash_balance"`
	BankDebt    *domain.BankDebtSummary `json:"bank_debt"`
	ThirdParty  *domain.ThirdParty      `json:"third_party"`
}

// SettlementUsecase sequences validation, fee computation, cash projection,
// commission-ledger adjustment and submission for third-party settlements.
type SettlementUsecase struct {
	bankRepo        repository.BankDebtRepository
	cashRepo        repository.CashRepository
	balanceRepo     repository.BalanceRepository
	commissionRepo  repository.CommissionRepository
	transactionRepo repository.TransactionRepository
	thirdPartyRepo  repository.ThirdPartyRepository

	events *publisher.SettlementEventPublisher
	refs   *utils.ReferenceGenerator
	logger *zap.Logger

	// in-flight guard: at most one running submission per form session.
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSettlementUsecase(
	bankRepo repository.BankDebtRepository,
	cashRepo repository.CashRepository,
	balanceRepo repository.BalanceRepository,
	commissionRepo repository.CommissionRepository,
	transactionRepo repository.TransactionRepository,
	thirdPartyRepo repository.ThirdPartyRepository,
	events *publisher.SettlementEventPublisher,
	logger *zap.Logger,
) *SettlementUsecase {
	return &SettlementUsecase{
		bankRepo:        bankRepo,
		cashRepo:        cashRepo,
		balanceRepo:     balanceRepo,
		commissionRepo:  commissionRepo,
		transactionRepo: transactionRepo,
		thirdPartyRepo:  thirdPartyRepo,
		events:          events,
		refs:            utils.NewReferenceGenerator(),
		logger:          logger,
		inFlight:        make(map[string]struct{}),
	}
}

// liveState is everything a validation pass reads, pulled fresh per attempt.
type liveState struct {
	correspondent *domain.Correspondent
	bankDebt      *domain.BankDebtSummary
	till          *domain.Till
	thirdParty    *domain.ThirdParty
	snapshot      domain.BalanceSnapshot
	commission    *domain.CommissionLedgerEntry
	position      balance.Position
}

// Submit runs one settlement attempt end to end. Rejections come back as
// *domain.RejectionError with the violated rule and limit; upstream read
// failures as *domain.UpstreamError; data-layer refusals as
// *domain.SubmissionError. A nil error means the record committed.
func (uc *SettlementUsecase) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submission request: %w", err)
	}

	// (1) At-most-one-in-flight per session, cleared no matter how the
	// attempt ends.
	if !uc.acquire(req.SessionID) {
		return nil, domain.ErrSubmissionInFlight
	}
	defer uc.release(req.SessionID)

	// (2) Re-pull everything the decision depends on. The form rendered
	// from snapshots that may be minutes old; the commit decision never
	// trusts them.
	state, err := uc.pullLiveState(ctx, req)
	if err != nil {
		return nil, err
	}

	// (3) Classify.
	kind := classifier.Classify(req.TransactionTypeName)

	// (4) Validate against the fresh state. A rejection has no side
	// effects: nothing was written, nothing needs undoing.
	err = validator.Validate(validator.Input{
		Kind:          kind,
		Amount:        req.Amount,
		Correspondent: state.correspondent,
		ThirdParty:    state.thirdParty,
		Till:          state.till,
		Position:      state.position,
	})
	if err != nil {
		uc.logRejection(req, kind, err)
		return nil, err
	}

	// (5) Fees and movement total.
	quote := fees.QuoteFor(req.Amount, req.DeliveryMethod)

	// (6) Projected till balance after commit.
	cashTag := cash.ProjectedBalance(state.till, kind, req.Amount)

	// (7) For charges, the slice of the payment that extinguishes fee debt
	// instead of capital debt.
	commissionPortion := commissionPortionFor(kind, req.Amount, state.position)

	reference, err := uc.refs.Generate(referencePrefix)
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}

	rec := &domain.TransactionRecord{
		Reference:       reference,
		CorrespondentID: req.CorrespondentID,
		ThirdPartyID:    req.ThirdPartyID,
		TillID:          req.TillID,
		ActorID:         req.ActorID,
		Kind:            kind,
		Cost:            req.Amount,
		Polarity:        kind.Polarity(),
		// Commissions are persisted negative-signed, as costs.
		BankCommission:               -quote.BankCommission,
		Dispersion:                   -quote.Dispersion,
		TotalCommission:              -(quote.BankCommission + quote.Dispersion),
		CashTag:                      cashTag,
		DeliveryMethod:               req.DeliveryMethod,
		AccumulatedCommissionPortion: commissionPortion,
	}

	// (8) The one atomic write. If it fails, no ledger side effect may
	// follow it.
	if _, err := uc.transactionRepo.Submit(ctx, rec); err != nil {
		uc.publishFailed(rec, err)
		return nil, &domain.SubmissionError{Message: "record not accepted", Err: err}
	}

	uc.logger.Info("settlement committed",
		zap.String("reference", rec.Reference),
		zap.String("kind", string(kind)),
		zap.Int64("amount", req.Amount),
		zap.Int64("cash_tag", cashTag),
		zap.Int64("commission_portion", commissionPortion),
		zap.String("actor_id", req.ActorID))

	// (9) Commission-ledger subtraction, only after a committed record. A
	// failure here is a divergence for the data layer to reconcile, not a
	// reason to roll the record back.
	if commissionPortion > 0 {
		subCtx, cancel := context.WithTimeout(ctx, CommissionLookupTimeout)
		err := uc.commissionRepo.SubtractCommission(subCtx, req.CorrespondentID, req.ThirdPartyID, commissionPortion)
		cancel()
		if err != nil {
			uc.logger.Error("commission subtraction failed after commit; ledger divergence pending reconciliation",
				zap.String("reference", rec.Reference),
				zap.Int64("commission_portion", commissionPortion),
				zap.Error(err))
		}
	}

	// (10) Post-commit refresh and event publication. Failures leave stale
	// cached values only; the committed record stands and the next
	// submission re-pulls everything anyway.
	refreshed := uc.refresh(ctx, req)
	uc.publishCompleted(rec)

	result := &SubmitResult{
		Record:            rec,
		Quote:             quote,
		CommissionPortion: commissionPortion,
		Position:          state.position,
	}
	if refreshed != nil {
		result.Position = refreshed.Position
	}

	return result, nil
}

// Panel returns the live commission-aware position for rendering the form.
func (uc *SettlementUsecase) Panel(ctx context.Context, correspondentID, thirdPartyID, tillID int64) (*PanelView, error) {
	bankDebt, err := uc.bankRepo.GetBankDebt(ctx, correspondentID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "bank debt", Err: err}
	}

	till, err := uc.cashRepo.GetCashSummary(ctx, tillID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "cash summary", Err: err}
	}

	thirdParty, snapshot, err := uc.balanceRepo.GetThirdPartyBalance(ctx, correspondentID, thirdPartyID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "third party balance", Err: err}
	}

	commCtx, cancel := context.WithTimeout(ctx, CommissionLookupTimeout)
	defer cancel()
	commission, err := uc.commissionRepo.GetCommissionLedger(commCtx, correspondentID, thirdPartyID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "commission ledger", Err: err}
	}

	return &PanelView{
		Position:    balance.Combine(snapshot, commission.TotalCommission),
		Till:        till,
		CashBalance: cash.CurrentBalance(till),
		BankDebt:    bankDebt,
		ThirdParty:  thirdParty,
	}, nil
}

func (uc *SettlementUsecase) pullLiveState(ctx context.Context, req *SubmitRequest) (*liveState, error) {
	correspondent, err := uc.thirdPartyRepo.GetCorrespondent(ctx, req.CorrespondentID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "correspondent", Err: err}
	}

	bankDebt, err := uc.bankRepo.GetBankDebt(ctx, req.CorrespondentID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "bank debt", Err: err}
	}

	till, err := uc.cashRepo.GetCashSummary(ctx, req.TillID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "cash summary", Err: err}
	}

	thirdParty, snapshot, err := uc.balanceRepo.GetThirdPartyBalance(ctx, req.CorrespondentID, req.ThirdPartyID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "third party balance", Err: err}
	}

	commCtx, cancel := context.WithTimeout(ctx, CommissionLookupTimeout)
	defer cancel()
	commission, err := uc.commissionRepo.GetCommissionLedger(commCtx, req.CorrespondentID, req.ThirdPartyID)
	if err != nil {
		return nil, &domain.UpstreamError{Op: "commission ledger", Err: err}
	}

	return &liveState{
		correspondent: correspondent,
		bankDebt:      bankDebt,
		till:          till,
		thirdParty:    thirdParty,
		snapshot:      snapshot,
		commission:    commission,
		position:      balance.Combine(snapshot, commission.TotalCommission),
	}, nil
}

// refresh re-pulls the cached live values after a commit: cash summary, bank
// debt, commission ledger, balance snapshot, in that order. Each read is
// independently retriable on the next attempt, so failures only log.
func (uc *SettlementUsecase) refresh(ctx context.Context, req *SubmitRequest) *PanelView {
	view := &PanelView{}

	till, err := uc.cashRepo.GetCashSummary(ctx, req.TillID)
	if err != nil {
		uc.logger.Warn("post-commit cash refresh failed", zap.Int64("till_id", req.TillID), zap.Error(err))
		return nil
	}
	view.Till = till
	view.CashBalance = cash.CurrentBalance(till)

	bankDebt, err := uc.bankRepo.GetBankDebt(ctx, req.CorrespondentID)
	if err != nil {
		uc.logger.Warn("post-commit bank debt refresh failed", zap.Int64("correspondent_id", req.CorrespondentID), zap.Error(err))
		return nil
	}
	view.BankDebt = bankDebt

	commCtx, cancel := context.WithTimeout(ctx, CommissionLookupTimeout)
	commission, err := uc.commissionRepo.GetCommissionLedger(commCtx, req.CorrespondentID, req.ThirdPartyID)
	cancel()
	if err != nil {
		uc.logger.Warn("post-commit commission refresh failed", zap.Int64("third_party_id", req.ThirdPartyID), zap.Error(err))
		return nil
	}

	thirdParty, snapshot, err := uc.balanceRepo.GetThirdPartyBalance(ctx, req.CorrespondentID, req.ThirdPartyID)
	if err != nil {
		uc.logger.Warn("post-commit balance refresh failed", zap.Int64("third_party_id", req.ThirdPartyID), zap.Error(err))
		return nil
	}
	view.ThirdParty = thirdParty
	view.Position = balance.Combine(snapshot, commission.TotalCommission)

	return view
}

// commissionPortionFor splits a charge payment between capital debt and
// accumulated commission debt. Anything above the capital debt extinguishes
// commission, capped by what is actually owed.
func commissionPortionFor(kind domain.SettlementKind, amount int64, pos balance.Position) int64 {
	if kind != domain.KindChargeToThirdParty {
		return 0
	}
	if amount <= pos.BaseDebtToCorrespondent {
		return 0
	}

	portion := amount - pos.BaseDebtToCorrespondent
	if portion > pos.TotalCommission {
		portion = pos.TotalCommission
	}
	return portion
}

func (uc *SettlementUsecase) acquire(sessionID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if _, busy := uc.inFlight[sessionID]; busy {
		return false
	}
	uc.inFlight[sessionID] = struct{}{}
	return true
}

func (uc *SettlementUsecase) release(sessionID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.inFlight, sessionID)
}

func (uc *SettlementUsecase) logRejection(req *SubmitRequest, kind domain.SettlementKind, err error) {
	fields := []zap.Field{
		zap.String("session_id", req.SessionID),
		zap.String("kind", string(kind)),
		zap.Int64("amount", req.Amount),
		zap.Int64("correspondent_id", req.CorrespondentID),
		zap.Int64("third_party_id", req.ThirdPartyID),
	}
	if re, ok := domain.IsRejection(err); ok {
		fields = append(fields, zap.String("code", string(re.Code)))
		if re.Limit != nil {
			fields = append(fields, zap.Int64("limit", *re.Limit))
		}
	}
	uc.logger.Info("settlement rejected", fields...)
}

func (uc *SettlementUsecase) publishCompleted(rec *domain.TransactionRecord) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishCompleted(context.Background(), rec); err != nil {
		uc.logger.Warn("settlement event publication failed", zap.String("reference", rec.Reference), zap.Error(err))
	}
}

func (uc *SettlementUsecase) publishFailed(rec *domain.TransactionRecord, cause error) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishFailed(context.Background(), rec, cause); err != nil {
		uc.logger.Warn("settlement failure event publication failed", zap.String("reference", rec.Reference), zap.Error(err))
	}
}
