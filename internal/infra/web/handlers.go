package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"media-subscription-platform/internal/domain"
	"media-subscription-platform/internal/domain/model"
	"media-subscription-platform/internal/domain/ports/repository"
	"media-subscription-platform/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// envelope is the uniform response shape: status=false carries a
// human-readable message, status=true carries the payload.
type envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, envelope{Status: false, Message: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeDomainError maps domain errors onto HTTP statuses. Unrecognized
// errors become an opaque 500; the detail stays in the logs.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSelfRedeem):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrAlreadyRedeemed), errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCodeExpired):
		writeError(w, http.StatusGone, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func pageParams(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50 // default page size
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

type subscriptionCreateRequest struct {
	UserID     string     `json:"user_id"`
	PlanID     string     `json:"plan_id"`
	PaymentRef *string    `json:"payment_ref,omitempty"`
	RedeemCode *string    `json:"redeem_code,omitempty"`
	StartAt    *time.Time `json:"start_at,omitempty"`
}

func subscriptionCreateHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sub, msg, err := subUC.Create(r.Context(), usecase.CreateSubscriptionInput{
			UserID:     req.UserID,
			PlanID:     req.PlanID,
			PaymentRef: req.PaymentRef,
			RedeemCode: req.RedeemCode,
			StartAt:    req.StartAt,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, envelope{Status: true, Message: msg, Data: sub})
	}
}

func subscriptionLatestHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		sub, err := subUC.Latest(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Data: sub})
	}
}

func subscriptionHistoryHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusUnprocessableEntity, "user_id is required")
			return
		}
		offset, limit := pageParams(r)

		subs, err := subUC.History(r.Context(), userID, offset, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Data: subs})
	}
}

type subscriptionUpdateRequest struct {
	PlanID     *string                   `json:"plan_id,omitempty"`
	PaymentRef *string                   `json:"payment_ref,omitempty"`
	StartAt    *time.Time                `json:"start_at,omitempty"`
	EndAt      *time.Time                `json:"end_at,omitempty"`
	Status     *model.SubscriptionStatus `json:"status,omitempty"`
	Amount     *int64                    `json:"amount,omitempty"`
}

func subscriptionUpdateHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sub, err := subUC.Update(r.Context(), chi.URLParam(r, "id"), usecase.UpdateSubscriptionInput{
			PlanID:     req.PlanID,
			PaymentRef: req.PaymentRef,
			StartAt:    req.StartAt,
			EndAt:      req.EndAt,
			Status:     req.Status,
			Amount:     req.Amount,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Message: "subscription updated", Data: sub})
	}
}

func subscriptionDeleteHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := subUC.Destroy(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func paymentCheckHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			writeError(w, http.StatusUnprocessableEntity, "user_id is required")
			return
		}

		actions, err := subUC.ReconcileUser(r.Context(), userID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Data: actions})
	}
}

type redeemGenerateRequest struct {
	OwnerUserID     string     `json:"owner_user_id"`
	BenefitEndMonth *time.Time `json:"benefit_end_month,omitempty"`
}

func redeemGenerateHandler(ledger usecase.RedeemLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req redeemGenerateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		code, err := ledger.Generate(r.Context(), req.OwnerUserID, req.BenefitEndMonth)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, envelope{Status: true, Message: "redeem code issued", Data: code})
	}
}

type redeemApplyRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

func redeemApplyHandler(ledger usecase.RedeemLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req redeemApplyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		code, claim, err := ledger.Apply(r.Context(), req.UserID, req.Code)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Message: "code applied", Data: map[string]any{
			"code":  code,
			"claim": claim,
		}})
	}
}

func articleGetHandler(articles repository.ArticleRepository, gate usecase.EntitlementGate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		art, err := articles.FindByID(r.Context(), repository.NoTX, chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if art.Status != model.ArticleStatusPublished {
			writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
			return
		}

		if art.IsPremium {
			uid := r.URL.Query().Get("uid")
			if uid == "" {
				writeError(w, http.StatusForbidden, "premium article requires a subscription")
				return
			}
			ok, err := gate.HasPremiumAccess(r.Context(), uid)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "premium article requires a subscription")
				return
			}
		}
		writeJSON(w, http.StatusOK, envelope{Status: true, Data: art})
	}
}
