package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/centralcompras/internal/httpx"
	"github.com/dejobratic/centralcompras/internal/orders/app"
	"github.com/dejobratic/centralcompras/internal/orders/app/commands"
	"github.com/dejobratic/centralcompras/internal/orders/app/queries"
	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
	"github.com/dejobratic/centralcompras/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

var errorStatuses = []httpx.Status{
	{Err: ports.ErrNotFound, Code: http.StatusNotFound},
	{Err: ports.ErrConflict, Code: http.StatusConflict},
	{Err: ports.ErrKeyLocked, Code: http.StatusConflict},
	{Err: domain.ErrInvalidStatus, Code: http.StatusUnprocessableEntity},
	{Err: domain.ErrTransitionNotAllowed, Code: http.StatusUnprocessableEntity},
}

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service *app.Service
	locker  ports.KeyLocker
	logger  *slog.Logger
}

// NewHandler constructs a Handler. A nil locker leaves concurrent requests
// with the same idempotency key unserialized.
func NewHandler(service *app.Service, locker ports.KeyLocker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, locker: locker, logger: logger}
}

// Register binds the order handlers to r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}/status", h.setStatus)
	})
}

type itemRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createOrderRequest struct {
	StoreID    int64            `json:"store_id"`
	SupplierID int64            `json:"supplier_id"`
	StoreState string           `json:"store_state"`
	Items      []itemRequest    `json:"items"`
	Total      *decimal.Decimal `json:"total"`
	// ApplyConditions defaults to true.
	ApplyConditions *bool `json:"apply_conditions"`
}

func (p createOrderRequest) command() commands.CreateOrderCommand {
	items := make([]commands.ItemInput, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, commands.ItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return commands.CreateOrderCommand{
		StoreID:         p.StoreID,
		SupplierID:      p.SupplierID,
		StoreState:      p.StoreState,
		Items:           items,
		Total:           p.Total,
		ApplyConditions: p.ApplyConditions == nil || *p.ApplyConditions,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if idemKey == "" {
		httpx.WriteError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}

	if h.locker != nil {
		unlock, err := h.locker.Lock(ctx, idemKey)
		if err != nil {
			httpx.WriteDomainError(w, err, errorStatuses...)
			return
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				h.logger.WarnContext(ctx, "failed to release idempotency lock", "error", err)
			}
		}()
	}

	if stored, err := h.service.GetIdempotentResponse(ctx, idemKey); err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	} else if stored != nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(stored.StatusCode)
		_, _ = w.Write(stored.Body)
		return
	}

	var payload createOrderRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.CreateOrder(ctx, payload.command())
	if err != nil && !errors.Is(err, commands.ErrEventNotPublished) {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}

	body, err := httpx.MarshalJSON(result)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stored := ports.StoredResponse{
		StatusCode: http.StatusCreated,
		Body:       body,
		OrderID:    result.Order.ID,
	}
	if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
		h.logger.WarnContext(ctx, "failed to store idempotent response",
			"error", err,
			"order_id", result.Order.ID,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	var (
		query  queries.ListOrdersQuery
		result validation.Result
	)
	query.StoreID = int64Query(values.Get("store_id"), "store_id", &result)
	query.SupplierID = int64Query(values.Get("supplier_id"), "supplier_id", &result)
	if status := values.Get("status"); status != "" {
		query.Status = &status
	}
	if err := result.Err(); err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	orders, err := h.service.ListOrders(r.Context(), query)
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func int64Query(raw, field string, result *validation.Result) *int64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		result.Add(field, "numeric", "must be an integer")
		return nil
	}
	return &v
}

type setStatusRequest struct {
	Status          string `json:"status"`
	ExpectedVersion *int   `json:"expected_version"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	var payload setStatusRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.SetStatus(r.Context(), commands.SetStatusCommand{
		OrderID:         id,
		Status:          payload.Status,
		ExpectedVersion: payload.ExpectedVersion,
	})
	if err != nil && !errors.Is(err, commands.ErrEventNotPublished) {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"order":           result.Order,
		"previous_status": result.From,
	})
}
