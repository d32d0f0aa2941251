package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/domain"
)

// ---- fakes for the collaborator interfaces ----

type fakeBankRepo struct {
	summary domain.BankDebtSummary
	err     error
}

func (f *fakeBankRepo) GetBankDebt(ctx context.Context, correspondentID int64) (*domain.BankDebtSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.summary
	return &s, nil
}

type fakeCashRepo struct {
	till domain.Till
	err  error
}

func (f *fakeCashRepo) GetCashSummary(ctx context.Context, tillID int64) (*domain.Till, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := f.till
	return &t, nil
}

type fakeBalanceRepo struct {
	thirdParty domain.ThirdParty
	snapshot   domain.BalanceSnapshot
	err        error
}

func (f *fakeBalanceRepo) GetThirdPartyBalance(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.ThirdParty, domain.BalanceSnapshot, error) {
	if f.err != nil {
		return nil, domain.BalanceSnapshot{}, f.err
	}
	tp := f.thirdParty
	return &tp, f.snapshot, nil
}

type fakeCommissionRepo struct {
	mu            sync.Mutex
	total         int64
	err           error
	subtractErr   error
	subtractCalls []int64
}

func (f *fakeCommissionRepo) GetCommissionLedger(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.CommissionLedgerEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CommissionLedgerEntry{
		CorrespondentID: correspondentID,
		ThirdPartyID:    thirdPartyID,
		TotalCommission: f.total,
	}, nil
}

func (f *fakeCommissionRepo) SubtractCommission(ctx context.Context, correspondentID, thirdPartyID, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subtractErr != nil {
		return f.subtractErr
	}
	f.subtractCalls = append(f.subtractCalls, amount)
	return nil
}

func (f *fakeCommissionRepo) calls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.subtractCalls...)
}

type fakeTransactionRepo struct {
	mu        sync.Mutex
	submitted []*domain.TransactionRecord
	submitErr error
	types     []*domain.TransactionType

	// release, when set, blocks Submit until closed.
	release chan struct{}
}

func (f *fakeTransactionRepo) Submit(ctx context.Context, rec *domain.TransactionRecord) (int64, error) {
	if f.release != nil {
		<-f.release
	}
	if f.submitErr != nil {
		return 0, f.submitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.ID = int64(len(f.submitted) + 1)
	f.submitted = append(f.submitted, rec)
	return rec.ID, nil
}

func (f *fakeTransactionRepo) ListTypes(ctx context.Context, correspondentID int64, category string) ([]*domain.TransactionType, error) {
	return f.types, nil
}

func (f *fakeTransactionRepo) records() []*domain.TransactionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.TransactionRecord(nil), f.submitted...)
}

type fakeThirdPartyRepo struct {
	correspondent domain.Correspondent
	parties       []*domain.ThirdParty
	err           error
}

func (f *fakeThirdPartyRepo) List(ctx context.Context, correspondentID int64) ([]*domain.ThirdParty, error) {
	return f.parties, nil
}

func (f *fakeThirdPartyRepo) GetCorrespondent(ctx context.Context, correspondentID int64) (*domain.Correspondent, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := f.correspondent
	return &c, nil
}

type fixture struct {
	bank        *fakeBankRepo
	cash        *fakeCashRepo
	balances    *fakeBalanceRepo
	commissions *fakeCommissionRepo
	txns        *fakeTransactionRepo
	parties     *fakeThirdPartyRepo
	uc          *SettlementUsecase
}

func newFixture() *fixture {
	f := &fixture{
		bank:        &fakeBankRepo{},
		cash:        &fakeCashRepo{},
		balances:    &fakeBalanceRepo{thirdParty: domain.ThirdParty{ID: 7, State: domain.ThirdPartyEnabled}},
		commissions: &fakeCommissionRepo{},
		txns:        &fakeTransactionRepo{},
		parties:     &fakeThirdPartyRepo{},
	}
	f.uc = NewSettlementUsecase(
		f.bank, f.cash, f.balances, f.commissions, f.txns, f.parties,
		nil, zap.NewNop(),
	)
	return f
}

func validRequest() *SubmitRequest {
	return &SubmitRequest{
		SessionID:           "session-1",
		ActorID:             "cashier-9",
		CorrespondentID:     1,
		ThirdPartyID:        7,
		TillID:              3,
		TransactionTypeName: "Pago a tercero",
		DeliveryMethod:      "Transferencia",
		Amount:              50000,
	}
}

// ---- tests ----

func TestSubmitDebtToThirdParty(t *testing.T) {
	f := newFixture()
	f.parties.correspondent = domain.Correspondent{ID: 1, Premium: true}
	f.cash.till = domain.Till{ID: 3, InitialAmount: 200000, Capacity: 300000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: -50000, Action: domain.ActionPays}

	result, err := f.uc.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.Quote.BankCommission)
	assert.Equal(t, int64(1000), result.Quote.Dispersion)
	assert.Equal(t, int64(0), result.CommissionPortion)

	recs := f.txns.records()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, domain.KindDebtToThirdParty, rec.Kind)
	assert.Equal(t, int64(150000), rec.CashTag)
	assert.Equal(t, -1, rec.Polarity)
	assert.Equal(t, int64(0), rec.BankCommission)
	assert.Equal(t, int64(-1000), rec.Dispersion)
	assert.Equal(t, int64(-1000), rec.TotalCommission)
	assert.NotEmpty(t, rec.Reference)
	assert.Equal(t, "cashier-9", rec.ActorID)

	assert.Empty(t, f.commissions.calls(), "a debt payment never touches the commission ledger")
}

func TestSubmitChargeAppliesCommissionPortion(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 500000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: 80000, Action: domain.ActionCollects}
	f.commissions.total = 20000

	req := validRequest()
	req.TransactionTypeName = "Pago de tercero"
	req.Amount = 90000

	result, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)

	// 90000 against 80000 of capital debt: 10000 goes to commission.
	assert.Equal(t, int64(10000), result.CommissionPortion)
	require.Len(t, f.txns.records(), 1)
	assert.Equal(t, int64(10000), f.txns.records()[0].AccumulatedCommissionPortion)
	assert.Equal(t, []int64{10000}, f.commissions.calls())
}

func TestSubmitChargeWithinCapitalDebtSkipsLedger(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 500000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: 80000, Action: domain.ActionCollects}
	f.commissions.total = 20000

	req := validRequest()
	req.TransactionTypeName = "Pago de tercero"
	req.Amount = 60000

	result, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.CommissionPortion)
	assert.Empty(t, f.commissions.calls())
}

func TestSubmitRejectionHasNoSideEffects(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 200000}
	// Collects: nothing payable, so a debt payment must be rejected.
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: 80000, Action: domain.ActionCollects}

	_, err := f.uc.Submit(context.Background(), validRequest())
	re, ok := domain.IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectNothingPayable, re.Code)

	assert.Empty(t, f.txns.records())
	assert.Empty(t, f.commissions.calls())
}

func TestSubmitUnknownTypeRejected(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 200000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: -50000, Action: domain.ActionPays}

	req := validRequest()
	req.TransactionTypeName = "Consignación misteriosa"

	_, err := f.uc.Submit(context.Background(), req)
	re, ok := domain.IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectUnknownKind, re.Code)
}

func TestSubmitPremiumCapacityRule(t *testing.T) {
	f := newFixture()
	f.parties.correspondent = domain.Correspondent{ID: 1, Premium: true}
	f.cash.till = domain.Till{ID: 3, InitialAmount: 290000, Capacity: 300000}
	f.balances.snapshot = domain.BalanceSnapshot{Action: domain.ActionNone}

	req := validRequest()
	req.TransactionTypeName = "Préstamo de terceros"
	req.Amount = 20000

	_, err := f.uc.Submit(context.Background(), req)
	re, ok := domain.IsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectExceedsTillCapacity, re.Code)
	require.NotNil(t, re.Limit)
	assert.Equal(t, int64(10000), *re.Limit)
}

func TestSubmitFailureSkipsCommissionSubtraction(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 500000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: 80000, Action: domain.ActionCollects}
	f.commissions.total = 20000
	f.txns.submitErr = errors.New("store unavailable")

	req := validRequest()
	req.TransactionTypeName = "Pago de tercero"
	req.Amount = 90000

	_, err := f.uc.Submit(context.Background(), req)

	var se *domain.SubmissionError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, f.commissions.calls(), "no ledger subtraction without a committed record")
}

func TestSubmitSubtractionFailureDoesNotFailSubmission(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 500000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: 80000, Action: domain.ActionCollects}
	f.commissions.total = 20000
	f.commissions.subtractErr = errors.New("ledger busy")

	req := validRequest()
	req.TransactionTypeName = "Pago de tercero"
	req.Amount = 90000

	result, err := f.uc.Submit(context.Background(), req)
	require.NoError(t, err, "the committed record stands; the divergence is reconciled later")
	assert.Equal(t, int64(10000), result.CommissionPortion)
	require.Len(t, f.txns.records(), 1)
}

func TestSubmitUpstreamReadFailureAborts(t *testing.T) {
	f := newFixture()
	f.cash.err = errors.New("cash service down")

	_, err := f.uc.Submit(context.Background(), validRequest())

	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "cash summary", ue.Op)
	assert.Empty(t, f.txns.records())
}

func TestSubmitInFlightGuard(t *testing.T) {
	f := newFixture()
	f.cash.till = domain.Till{ID: 3, InitialAmount: 200000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: -50000, Action: domain.ActionPays}
	f.txns.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.uc.Submit(context.Background(), validRequest())
		done <- err
	}()

	// Wait until the first submission is parked inside Submit.
	for {
		f.uc.mu.Lock()
		_, busy := f.uc.inFlight["session-1"]
		f.uc.mu.Unlock()
		if busy {
			break
		}
		time.Sleep(time.Millisecond)
	}

	_, err := f.uc.Submit(context.Background(), validRequest())
	assert.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	close(f.txns.release)
	require.NoError(t, <-done)

	// The guard clears once the first attempt finishes.
	_, err = f.uc.Submit(context.Background(), validRequest())
	assert.NotErrorIs(t, err, domain.ErrSubmissionInFlight)
}

func TestSubmitRequestValidation(t *testing.T) {
	f := newFixture()

	req := validRequest()
	req.SessionID = ""
	_, err := f.uc.Submit(context.Background(), req)
	assert.Error(t, err)

	req = validRequest()
	req.ActorID = ""
	_, err = f.uc.Submit(context.Background(), req)
	assert.Error(t, err)

	req = validRequest()
	req.ThirdPartyID = 0
	_, err = f.uc.Submit(context.Background(), req)
	assert.Error(t, err)
}

func TestPanel(t *testing.T) {
	f := newFixture()
	f.bank.summary = domain.BankDebtSummary{DebtToBank: 1000000, Incomes: 400000, Withdrawals: 100000, NetCash: 300000}
	f.cash.till = domain.Till{ID: 3, InitialAmount: 150000, IncomesTotal: 70000, WithdrawalsTotal: 20000}
	f.balances.snapshot = domain.BalanceSnapshot{NetBalance: -50000, Action: domain.ActionPays, AvailableCredit: 80000}
	f.commissions.total = 20000

	view, err := f.uc.Panel(context.Background(), 1, 7, 3)
	require.NoError(t, err)

	assert.Equal(t, int64(200000), view.CashBalance)
	assert.Equal(t, int64(30000), view.Position.EffectivePayableByCorrespondent)
	assert.Equal(t, int64(20000), view.Position.EffectiveDebtToCorrespondent)
	assert.Equal(t, int64(30000), view.Position.PendingForPanel)
	assert.Equal(t, int64(60000), view.Position.AvailableCreditAdjusted)
	assert.Equal(t, int64(1000000), view.BankDebt.DebtToBank)
}
