package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/coaltrack/apiserver/internal/store"
	"github.com/coaltrack/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const maxShipmentBodyBytes = 1 << 20

// ShipmentService is the set of shipment use-cases the handlers need.
type ShipmentService interface {
	List(ctx context.Context) ([]types.Shipment, error)
	Get(ctx context.Context, id int64) (types.Shipment, error)
	Create(ctx context.Context, raw map[string]json.RawMessage) (int64, error)
	Update(ctx context.Context, id int64, raw map[string]json.RawMessage) error
	Delete(ctx context.Context, id int64) error
}

// ShippingHandler provides HTTP handlers for shipment records.
type ShippingHandler struct {
	shipmentService ShipmentService
	logger          *slog.Logger
}

// NewShippingHandler constructs a handler with the provided service.
func NewShippingHandler(shipmentService ShipmentService, logger *slog.Logger) *ShippingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShippingHandler{shipmentService: shipmentService, logger: logger}
}

// ShippingRouter registers shipment routes on the given router. Every route
// requires a session.
func ShippingRouter(r chi.Router, shipmentService ShipmentService, requireSession func(http.Handler) http.Handler, logger *slog.Logger) {
	handler := NewShippingHandler(shipmentService, logger)

	r.Use(requireSession)
	r.Get("/", handler.ListShipments)
	r.Post("/", handler.CreateShipment)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", handler.GetShipment)
		r.Put("/", handler.UpdateShipment)
		r.Delete("/", handler.DeleteShipment)
	})
}

func (h *ShippingHandler) ListShipments(w http.ResponseWriter, r *http.Request) {
	shipments, err := h.shipmentService.List(r.Context())
	if err != nil {
		h.writeShipmentError(w, err, "Query failed")
		return
	}
	writeJSON(w, http.StatusOK, shipments)
}

func (h *ShippingHandler) GetShipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseShipmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	shipment, err := h.shipmentService.Get(r.Context(), id)
	if err != nil {
		h.writeShipmentError(w, err, "Query failed")
		return
	}
	writeJSON(w, http.StatusOK, shipment)
}

func (h *ShippingHandler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeShipmentBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.shipmentService.Create(r.Context(), raw)
	if err != nil {
		h.writeShipmentError(w, err, "Create failed")
		return
	}
	writeJSON(w, http.StatusCreated, CreateShipmentResponse{ID: id, Message: "Shipping data created successfully"})
}

func (h *ShippingHandler) UpdateShipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseShipmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	raw, err := decodeShipmentBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.shipmentService.Update(r.Context(), id, raw); err != nil {
		h.writeShipmentError(w, err, "Update failed")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Shipping data updated successfully"})
}

func (h *ShippingHandler) DeleteShipment(w http.ResponseWriter, r *http.Request) {
	id, err := parseShipmentID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.shipmentService.Delete(r.Context(), id); err != nil {
		h.writeShipmentError(w, err, "Delete failed")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Shipping data deleted successfully"})
}

// writeShipmentError maps store errors to responses. Driver errors are
// logged and replaced by fallback.
func (h *ShippingHandler) writeShipmentError(w http.ResponseWriter, err error, fallback string) {
	var fieldErr *types.FieldError
	switch {
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, msgStoreDown)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Data not found")
	case errors.Is(err, store.ErrMissingRequiredFields):
		writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, store.ErrNoFieldsToUpdate):
		writeError(w, http.StatusBadRequest, "No fields to update")
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid field", Details: fieldErr.Error()})
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid field")
	default:
		h.logger.Error("shipment request failed", "operation", fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func parseShipmentID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		return 0, errors.New("ID is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("Invalid ID")
	}
	return id, nil
}

func decodeShipmentBody(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxShipmentBodyBytes)).Decode(&raw); err != nil {
		return nil, errors.New("invalid request body")
	}
	return raw, nil
}

type CreateShipmentResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}
