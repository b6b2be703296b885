package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ramenya/ordering-service/internal/catalog"
	"github.com/rs/zerolog/log"
)

// CatalogHandler handles HTTP requests for the merchandise catalog.
type CatalogHandler struct {
	svc catalog.Service
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var input catalog.CreateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.CreateItem(r.Context(), input)
	if err != nil {
		log.Warn().Err(err).Msg("handler: failed to create merchandise")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		items, err := h.svc.ListItemsByType(r.Context(), catalog.ItemType(typeParam))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, items)
		return
	}

	var available *bool
	switch r.URL.Query().Get("available") {
	case "true":
		v := true
		available = &v
	case "false":
		v := false
		available = &v
	}

	items, err := h.svc.ListItems(r.Context(), available)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to list merchandise")
		writeError(w, http.StatusInternalServerError, "failed to list merchandise")
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemID")
	if !ok {
		return
	}

	item, err := h.svc.GetItemByID(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrMerchandiseNotFound) {
			writeError(w, http.StatusNotFound, "merchandise not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to get merchandise")
		writeError(w, http.StatusInternalServerError, "failed to get merchandise")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemID")
	if !ok {
		return
	}

	var input catalog.UpdateItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.UpdateItem(r.Context(), itemID, input)
	if err != nil {
		if errors.Is(err, catalog.ErrMerchandiseNotFound) {
			writeError(w, http.StatusNotFound, "merchandise not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to update merchandise")
		writeError(w, http.StatusInternalServerError, "failed to update merchandise")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

type setPriceRequest struct {
	Price int64 `json:"price"`
}

func (h *CatalogHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemID")
	if !ok {
		return
	}

	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.svc.SetPrice(r.Context(), itemID, req.Price)
	if err != nil {
		if errors.Is(err, catalog.ErrMerchandiseNotFound) {
			writeError(w, http.StatusNotFound, "merchandise not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to set merchandise price")
		writeError(w, http.StatusInternalServerError, "failed to set merchandise price")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) ToggleAvailability(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemID")
	if !ok {
		return
	}

	item, err := h.svc.ToggleAvailability(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, catalog.ErrMerchandiseNotFound) {
			writeError(w, http.StatusNotFound, "merchandise not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to toggle merchandise availability")
		writeError(w, http.StatusInternalServerError, "failed to toggle merchandise availability")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := parseIDParam(w, r, "itemID")
	if !ok {
		return
	}

	if err := h.svc.DeleteItem(r.Context(), itemID); err != nil {
		if errors.Is(err, catalog.ErrMerchandiseNotFound) {
			writeError(w, http.StatusNotFound, "merchandise not found")
			return
		}
		log.Error().Err(err).Msg("handler: failed to delete merchandise")
		writeError(w, http.StatusInternalServerError, "failed to delete merchandise")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
