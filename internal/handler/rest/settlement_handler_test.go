package hrest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/domain"
	"github.com/maobits/coban365-sub000/internal/usecase"
)

type stubBankRepo struct{ summary domain.BankDebtSummary }

func (s *stubBankRepo) GetBankDebt(ctx context.Context, correspondentID int64) (*domain.BankDebtSummary, error) {
	out := s.summary
	return &out, nil
}

type stubCashRepo struct{ till domain.Till }

func (s *stubCashRepo) GetCashSummary(ctx context.Context, tillID int64) (*domain.Till, error) {
	out := s.till
	return &out, nil
}

type stubBalanceRepo struct {
	thirdParty domain.ThirdParty
	snapshot   domain.BalanceSnapshot
}

func (s *stubBalanceRepo) GetThirdPartyBalance(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.ThirdParty, domain.BalanceSnapshot, error) {
	out := s.thirdParty
	return &out, s.snapshot, nil
}

type stubCommissionRepo struct{ total int64 }

func (s *stubCommissionRepo) GetCommissionLedger(ctx context.Context, correspondentID, thirdPartyID int64) (*domain.CommissionLedgerEntry, error) {
	return &domain.CommissionLedgerEntry{TotalCommission: s.total}, nil
}

func (s *stubCommissionRepo) SubtractCommission(ctx context.Context, correspondentID, thirdPartyID, amount int64) error {
	return nil
}

type stubTransactionRepo struct{}

func (s *stubTransactionRepo) Submit(ctx context.Context, rec *domain.TransactionRecord) (int64, error) {
	rec.ID = 42
	return 42, nil
}

func (s *stubTransactionRepo) ListTypes(ctx context.Context, correspondentID int64, category string) ([]*domain.TransactionType, error) {
	return []*domain.TransactionType{{ID: 1, Name: "Pago a tercero", Category: category}}, nil
}

type stubThirdPartyRepo struct{ correspondent domain.Correspondent }

func (s *stubThirdPartyRepo) List(ctx context.Context, correspondentID int64) ([]*domain.ThirdParty, error) {
	return []*domain.ThirdParty{{ID: 7, Name: "Distribuidora Norte", State: domain.ThirdPartyEnabled}}, nil
}

func (s *stubThirdPartyRepo) GetCorrespondent(ctx context.Context, correspondentID int64) (*domain.Correspondent, error) {
	out := s.correspondent
	return &out, nil
}

func newTestRouter(balances *stubBalanceRepo, cash *stubCashRepo) http.Handler {
	logger := zap.NewNop()
	txns := &stubTransactionRepo{}
	parties := &stubThirdPartyRepo{}
	commissions := &stubCommissionRepo{}

	settlementUC := usecase.NewSettlementUsecase(
		&stubBankRepo{}, cash, balances, commissions, txns, parties, nil, logger,
	)
	referenceUC := usecase.NewReferenceUsecase(txns, parties, nil, logger)
	h := NewSettlementRestHandler(settlementUC, referenceUC, logger)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r
}

func TestSubmitEndpoint(t *testing.T) {
	router := newTestRouter(
		&stubBalanceRepo{
			thirdParty: domain.ThirdParty{ID: 7, State: domain.ThirdPartyEnabled},
			snapshot:   domain.BalanceSnapshot{NetBalance: -50000, Action: domain.ActionPays},
		},
		&stubCashRepo{till: domain.Till{ID: 3, InitialAmount: 200000}},
	)

	body := `{
		"session_id": "s1", "actor_id": "cashier-9",
		"correspondent_id": 1, "third_party_id": 7, "till_id": 3,
		"transaction_type_name": "Pago a tercero",
		"delivery_method": "Transferencia",
		"amount": 50000
	}`

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/", strings.NewReader(body))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var result usecase.SubmitResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, int64(150000), result.Record.CashTag)
	assert.Equal(t, int64(1000), result.Quote.Dispersion)
}

func TestSubmitEndpointRejection(t *testing.T) {
	router := newTestRouter(
		&stubBalanceRepo{
			thirdParty: domain.ThirdParty{ID: 7, State: domain.ThirdPartyEnabled},
			// Collects: a debt payment has nothing payable.
			snapshot: domain.BalanceSnapshot{NetBalance: 80000, Action: domain.ActionCollects},
		},
		&stubCashRepo{till: domain.Till{ID: 3, InitialAmount: 200000}},
	)

	body := `{
		"session_id": "s1", "actor_id": "cashier-9",
		"correspondent_id": 1, "third_party_id": 7, "till_id": 3,
		"transaction_type_name": "Pago a tercero",
		"delivery_method": "Transferencia",
		"amount": 50000
	}`

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/", strings.NewReader(body))
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var payload struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, string(domain.RejectNothingPayable), payload.Code)
	assert.NotEmpty(t, payload.Reason)
}

func TestSubmitEndpointBadBody(t *testing.T) {
	router := newTestRouter(&stubBalanceRepo{}, &stubCashRepo{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/settlements/", strings.NewReader("{not json"))
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPanelEndpoint(t *testing.T) {
	router := newTestRouter(
		&stubBalanceRepo{
			thirdParty: domain.ThirdParty{ID: 7, State: domain.ThirdPartyEnabled, AvailableCredit: 80000},
			snapshot:   domain.BalanceSnapshot{NetBalance: -50000, Action: domain.ActionPays, AvailableCredit: 80000},
		},
		&stubCashRepo{till: domain.Till{ID: 3, InitialAmount: 200000}},
	)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settlements/panel?correspondent_id=1&third_party_id=7&till_id=3", nil)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var view usecase.PanelView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, int64(200000), view.CashBalance)
	assert.Equal(t, int64(50000), view.Position.PendingForPanel)
}

func TestPanelEndpointMissingParams(t *testing.T) {
	router := newTestRouter(&stubBalanceRepo{}, &stubCashRepo{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/settlements/panel?correspondent_id=1", nil)
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReferenceEndpoints(t *testing.T) {
	router := newTestRouter(&stubBalanceRepo{}, &stubCashRepo{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reference/transaction-types?correspondent_id=1&category=terceros", nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var types []*domain.TransactionType
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &types))
	require.Len(t, types, 1)

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/reference/third-parties?correspondent_id=1", nil)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
