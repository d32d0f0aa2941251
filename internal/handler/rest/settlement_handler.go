package hrest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/domain"
	"github.com/maobits/coban365-sub000/internal/usecase"
)

// SettlementRestHandler exposes the settlement engine over HTTP for the
// back-office UI.
type SettlementRestHandler struct {
	settlementUC *usecase.SettlementUsecase
	referenceUC  *usecase.ReferenceUsecase
	logger       *zap.Logger
}

func NewSettlementRestHandler(
	settlementUC *usecase.SettlementUsecase,
	referenceUC *usecase.ReferenceUsecase,
	logger *zap.Logger,
) *SettlementRestHandler {
	return &SettlementRestHandler{
		settlementUC: settlementUC,
		referenceUC:  referenceUC,
		logger:       logger,
	}
}

// RegisterRoutes mounts the handler under the given router.
func (h *SettlementRestHandler) RegisterRoutes(r chi.Router) {
	r.Route("/settlements", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/panel", h.Panel)
	})
	r.Route("/reference", func(r chi.Router) {
		r.Get("/transaction-types", h.ListTransactionTypes)
		r.Get("/third-parties", h.ListThirdParties)
	})
}

// Submit handles one settlement submission attempt.
func (h *SettlementRestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req usecase.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
		return
	}

	result, err := h.settlementUC.Submit(r.Context(), &req)
	if err != nil {
		h.respondSubmitError(w, &req, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

func (h *SettlementRestHandler) respondSubmitError(w http.ResponseWriter, req *usecase.SubmitRequest, err error) {
	if re, ok := domain.IsRejection(err); ok {
		// Rejections are user-facing: code, reason and the violated limit
		// travel to the UI so the message can be actionable.
		respondError(w, http.StatusUnprocessableEntity, string(re.Code), re.Reason, re.Limit)
		return
	}

	if errors.Is(err, domain.ErrSubmissionInFlight) {
		respondError(w, http.StatusConflict, "submission_in_flight", err.Error(), nil)
		return
	}

	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		h.logger.Error("settlement upstream read failed",
			zap.String("session_id", req.SessionID),
			zap.String("op", upstream.Op),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "upstream_read_failure", "a required live value could not be read", nil)
		return
	}

	var submission *domain.SubmissionError
	if errors.As(err, &submission) {
		h.logger.Error("settlement submission refused",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "submission_failure", "the record was not accepted", nil)
		return
	}

	respondError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}

// Panel returns the live commission-aware position for a pair.
func (h *SettlementRestHandler) Panel(w http.ResponseWriter, r *http.Request) {
	correspondentID, ok1 := queryInt64(r, "correspondent_id")
	thirdPartyID, ok2 := queryInt64(r, "third_party_id")
	tillID, ok3 := queryInt64(r, "till_id")
	if !ok1 || !ok2 || !ok3 {
		respondError(w, http.StatusBadRequest, "bad_request", "correspondent_id, third_party_id and till_id are required", nil)
		return
	}

	view, err := h.settlementUC.Panel(r.Context(), correspondentID, thirdPartyID, tillID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "correspondent, till or third party not found", nil)
			return
		}
		h.logger.Error("panel read failed",
			zap.Int64("correspondent_id", correspondentID),
			zap.Int64("third_party_id", thirdPartyID),
			zap.Error(err))
		respondError(w, http.StatusBadGateway, "upstream_read_failure", "a required live value could not be read", nil)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *SettlementRestHandler) ListTransactionTypes(w http.ResponseWriter, r *http.Request) {
	correspondentID, ok := queryInt64(r, "correspondent_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "bad_request", "correspondent_id is required", nil)
		return
	}
	category := r.URL.Query().Get("category")

	types, err := h.referenceUC.ListTransactionTypes(r.Context(), correspondentID, category)
	if err != nil {
		h.logger.Error("transaction type listing failed", zap.Int64("correspondent_id", correspondentID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "failed to list transaction types", nil)
		return
	}

	respondJSON(w, http.StatusOK, types)
}

func (h *SettlementRestHandler) ListThirdParties(w http.ResponseWriter, r *http.Request) {
	correspondentID, ok := queryInt64(r, "correspondent_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "bad_request", "correspondent_id is required", nil)
		return
	}

	parties, err := h.referenceUC.ListThirdParties(r.Context(), correspondentID)
	if err != nil {
		h.logger.Error("third party listing failed", zap.Int64("correspondent_id", correspondentID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", "failed to list third parties", nil)
		return
	}

	respondJSON(w, http.StatusOK, parties)
}

func queryInt64(r *http.Request, key string) (int64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
	Limit  *int64 `json:"limit,omitempty"`
}

func respondError(w http.ResponseWriter, status int, code, reason string, limit *int64) {
	respondJSON(w, status, errorBody{Code: code, Reason: reason, Limit: limit})
}
