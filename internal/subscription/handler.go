// AngelaMos | 2026
// handler.go

package subscription

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/socialfinance/internal/billing"
	"github.com/angelamos/socialfinance/internal/core"
	"github.com/angelamos/socialfinance/internal/middleware"
)

// Stripe invoice payloads with many line items can run well past 64 KiB; a
// truncated body never verifies and the event is redelivered forever.
const maxWebhookBody = 1 << 20

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/subscriptions", func(r chi.Router) {
		// Webhook authenticates via signature, not bearer token.
		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Post("/", h.Subscribe)
			r.Get("/", h.ListMine)
			r.Get("/subscribers", h.ListSubscribers)
			r.Get("/check/{creatorID}", h.Check)
			r.Delete("/{subscriptionID}", h.Cancel)
			r.Get("/{subscriptionID}/payments", h.ListPayments)
		})
	})
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	sub, err := h.service.Subscribe(r.Context(), userID, req.CreatorID)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidInput):
			core.BadRequest(w, "cannot subscribe to yourself")
		case errors.Is(err, core.ErrConflict):
			core.JSONError(w, core.ConflictError("subscription already active"))
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "creator")
		case errors.Is(err, core.ErrInvalidState):
			core.JSONError(
				w,
				core.InvalidStateError("creator does not offer subscriptions"),
			)
		case errors.Is(err, billing.ErrGateway):
			core.BadGateway(w, "payment provider unavailable")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.Created(w, ToSubscriptionResponse(sub))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	subs, err := h.service.List(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponseList(subs))
}

func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	subs, err := h.service.ListSubscribers(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponseList(subs))
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	creatorID := chi.URLParam(r, "creatorID")

	subscribed, err := h.service.IsSubscribed(r.Context(), userID, creatorID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, CheckResponse{IsSubscribed: subscribed})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	if err := h.service.Cancel(r.Context(), userID, subID); err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "subscription")
		case errors.Is(err, billing.ErrGateway):
			core.BadGateway(w, "payment provider unavailable")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	subID := chi.URLParam(r, "subscriptionID")

	payments, err := h.service.ListPayments(r.Context(), userID, subID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "subscription")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPaymentResponseList(payments))
}

// Webhook receives billing provider events. A 2xx acknowledges the
// event; anything else makes the provider redeliver it later.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.BadRequest(w, "unable to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")

	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			core.BadRequest(w, "invalid webhook signature")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]string{"status": "success"})
}
