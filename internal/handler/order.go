package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/ramenya/ordering-service/internal/order"
	"github.com/rs/zerolog/log"
)

// OrderHandler handles HTTP requests for orders and their groups.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var input order.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.svc.CreateOrder(r.Context(), input)
	if err != nil {
		if order.IsValidationError(err) {
			writeError(w, http.StatusBadRequest, businessErrorMessages(err)...)
			return
		}
		log.Error().Err(err).Msg("handler: failed to create order")
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *OrderHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to get order")
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var opts order.ListOptions

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := order.OrderStatus(statusParam)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "status must be one of: ORDERED, PAID, READY")
			return
		}
		opts.Status = &status
	}
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if n, err := strconv.Atoi(limitParam); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if offsetParam := r.URL.Query().Get("offset"); offsetParam != "" {
		if n, err := strconv.Atoi(offsetParam); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	orders, err := h.svc.ListOrders(r.Context(), opts)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list orders")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	paid, err := h.svc.Pay(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to pay order")
		writeError(w, http.StatusInternalServerError, "failed to pay order")
		return
	}

	writeJSON(w, http.StatusOK, paid)
}

type updateOrderStatusRequest struct {
	Status order.OrderStatus `json:"status"`
}

func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "orderID")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be one of: ORDERED, PAID, READY")
		return
	}

	updated, err := h.svc.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to update order status")
		writeError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) PrepareGroup(w http.ResponseWriter, r *http.Request) {
	h.setGroupStatus(w, r, order.GroupPreparing, "group marked as preparing")
}

func (h *OrderHandler) ReadyGroup(w http.ResponseWriter, r *http.Request) {
	h.setGroupStatus(w, r, order.GroupReady, "group marked as ready")
}

type updateGroupStatusRequest struct {
	Status order.GroupStatus `json:"status"`
}

func (h *OrderHandler) UpdateGroupStatus(w http.ResponseWriter, r *http.Request) {
	var req updateGroupStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "status must be one of: NOT_READY, PREPARING, READY")
		return
	}
	h.setGroupStatus(w, r, req.Status, "group status updated")
}

func (h *OrderHandler) setGroupStatus(w http.ResponseWriter, r *http.Request, status order.GroupStatus, message string) {
	groupID, ok := parseIDParam(w, r, "groupID")
	if !ok {
		return
	}

	if err := h.svc.SetGroupStatus(r.Context(), groupID, status); err != nil {
		if errors.Is(err, order.ErrGroupNotFound) {
			writeError(w, http.StatusNotFound, "order group not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to update group status")
		writeError(w, http.StatusInternalServerError, "failed to update group status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.FromString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
