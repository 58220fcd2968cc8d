package http

import (
	"net/http"
	"time"

	"github.com/dejobratic/centralcompras/internal/commercial/app"
	"github.com/dejobratic/centralcompras/internal/commercial/domain"
	"github.com/dejobratic/centralcompras/internal/commercial/ports"
	"github.com/dejobratic/centralcompras/internal/httpx"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

var errorStatuses = []httpx.Status{
	{Err: ports.ErrNotFound, Code: http.StatusNotFound},
	{Err: ports.ErrForbidden, Code: http.StatusForbidden},
	{Err: ports.ErrConditionExists, Code: http.StatusConflict},
}

// Handler exposes the pricing engine and supplier administration of
// commercial conditions and campaigns.
type Handler struct {
	service *app.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the commercial routes to r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/pricing/apply-conditions", h.applyConditions)
	r.Post("/v1/pricing/evaluate-campaigns", h.evaluateCampaigns)
	r.Get("/v1/campaigns/active", h.listActiveCampaigns)

	r.Route("/v1/suppliers/{supplierID}", func(r chi.Router) {
		r.Get("/conditions", h.listConditions)
		r.Post("/conditions", h.createCondition)
		r.Put("/conditions/{id}", h.updateCondition)
		r.Delete("/conditions/{id}", h.deleteCondition)

		r.Get("/campaigns", h.listCampaigns)
		r.Post("/campaigns", h.createCampaign)
		r.Put("/campaigns/{id}", h.updateCampaign)
		r.Delete("/campaigns/{id}", h.deleteCampaign)
	})
}

type lineRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// pricingLines fills line totals and derives the order total when omitted.
func pricingLines(items []lineRequest, total *decimal.Decimal) ([]domain.PricingLine, decimal.Decimal) {
	lines := make([]domain.PricingLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, domain.PricingLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)),
		})
	}
	if total != nil {
		return lines, *total
	}
	return lines, domain.SumLines(lines)
}

type applyConditionsRequest struct {
	SupplierID int64            `json:"supplier_id"`
	StoreState string           `json:"store_state"`
	Items      []lineRequest    `json:"items"`
	Total      *decimal.Decimal `json:"total"`
}

func (h *Handler) applyConditions(w http.ResponseWriter, r *http.Request) {
	var payload applyConditionsRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, total := pricingLines(payload.Items, payload.Total)
	result, err := h.service.ApplyStateConditions(r.Context(), domain.PricingRequest{
		SupplierID: payload.SupplierID,
		StoreState: payload.StoreState,
		Items:      lines,
		Total:      total,
	})
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"pricing": result})
}

type evaluateCampaignsRequest struct {
	SupplierID int64            `json:"supplier_id"`
	Items      []lineRequest    `json:"items"`
	Total      *decimal.Decimal `json:"total"`
}

func (h *Handler) evaluateCampaigns(w http.ResponseWriter, r *http.Request) {
	var payload evaluateCampaignsRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	lines, total := pricingLines(payload.Items, payload.Total)
	rewards, err := h.service.EvaluateCampaigns(r.Context(), domain.CampaignRequest{
		SupplierID: payload.SupplierID,
		Items:      lines,
		Total:      total,
	})
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"rewards": rewards})
}

func (h *Handler) listActiveCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.service.ListActiveCampaigns(r.Context())
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

type conditionRequest struct {
	State               string           `json:"state"`
	CashbackPercent     *decimal.Decimal `json:"cashback_percent"`
	PaymentTermDays     *int             `json:"payment_term_days"`
	UnitPriceAdjustment decimal.Decimal  `json:"unit_price_adjustment"`
}

func (h *Handler) listConditions(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.IDParam(r, "supplierID")
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	conditions, err := h.service.ListConditions(r.Context(), supplierID)
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"conditions": conditions})
}

func (h *Handler) createCondition(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.IDParam(r, "supplierID")
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	var payload conditionRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cond, err := h.service.CreateCondition(r.Context(), supplierID, domain.Condition{
		State:               payload.State,
		CashbackPercent:     payload.CashbackPercent,
		PaymentTermDays:     payload.PaymentTermDays,
		UnitPriceAdjustment: payload.UnitPriceAdjustment,
	})
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"condition": cond})
}

func (h *Handler) updateCondition(w http.ResponseWriter, r *http.Request) {
	supplierID, id, err := ownerAndID(r)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	var patch domain.ConditionPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cond, err := h.service.UpdateCondition(r.Context(), supplierID, id, patch)
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"condition": cond})
}

func (h *Handler) deleteCondition(w http.ResponseWriter, r *http.Request) {
	supplierID, id, err := ownerAndID(r)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	if err := h.service.DeleteCondition(r.Context(), supplierID, id); err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type campaignRequest struct {
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	Kind            domain.CampaignKind `json:"kind"`
	MinimumValue    *decimal.Decimal    `json:"minimum_value"`
	ProductID       *int64              `json:"product_id"`
	MinimumQuantity *int64              `json:"minimum_quantity"`
	RewardKind      string              `json:"reward_kind"`
	RewardValue     decimal.Decimal     `json:"reward_value"`
	StartsAt        time.Time           `json:"starts_at"`
	EndsAt          time.Time           `json:"ends_at"`
	Active          *bool               `json:"active"`
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.IDParam(r, "supplierID")
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	campaigns, err := h.service.ListCampaigns(r.Context(), supplierID)
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.IDParam(r, "supplierID")
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	var payload campaignRequest
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}

	campaign, err := h.service.CreateCampaign(r.Context(), supplierID, domain.Campaign{
		Name:            payload.Name,
		Description:     payload.Description,
		Kind:            payload.Kind,
		MinimumValue:    payload.MinimumValue,
		ProductID:       payload.ProductID,
		MinimumQuantity: payload.MinimumQuantity,
		RewardKind:      payload.RewardKind,
		RewardValue:     payload.RewardValue,
		StartsAt:        payload.StartsAt,
		EndsAt:          payload.EndsAt,
		Active:          active,
	})
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"campaign": campaign})
}

func (h *Handler) updateCampaign(w http.ResponseWriter, r *http.Request) {
	supplierID, id, err := ownerAndID(r)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	var patch domain.CampaignPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.service.UpdateCampaign(r.Context(), supplierID, id, patch)
	if err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"campaign": campaign})
}

func (h *Handler) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	supplierID, id, err := ownerAndID(r)
	if err != nil {
		httpx.WriteDomainError(w, err)
		return
	}

	if err := h.service.DeleteCampaign(r.Context(), supplierID, id); err != nil {
		httpx.WriteDomainError(w, err, errorStatuses...)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ownerAndID(r *http.Request) (int64, int64, error) {
	supplierID, err := httpx.IDParam(r, "supplierID")
	if err != nil {
		return 0, 0, err
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		return 0, 0, err
	}
	return supplierID, id, nil
}
