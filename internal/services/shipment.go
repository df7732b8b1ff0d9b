package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coaltrack/apiserver/internal/store"
	"github.com/coaltrack/apiserver/types"
)

// ShipmentRepository defines persistence operations for shipments.
type ShipmentRepository interface {
	List(ctx context.Context) ([]types.Shipment, error)
	Get(ctx context.Context, id int64) (types.Shipment, error)
	Create(ctx context.Context, fields types.ShipmentFields) (int64, error)
	UpdatePartial(ctx context.Context, id int64, fields types.ShipmentFields) error
	Delete(ctx context.Context, id int64) error
}

// ShipmentService encapsulates shipment use-cases.
type ShipmentService struct {
	repo ShipmentRepository
}

func NewShipmentService(repo ShipmentRepository) *ShipmentService {
	return &ShipmentService{repo: repo}
}

func (s *ShipmentService) List(ctx context.Context) ([]types.Shipment, error) {
	return s.repo.List(ctx)
}

func (s *ShipmentService) Get(ctx context.Context, id int64) (types.Shipment, error) {
	return s.repo.Get(ctx, id)
}

// Create validates the raw request object and stores a new shipment.
func (s *ShipmentService) Create(ctx context.Context, raw map[string]json.RawMessage) (int64, error) {
	fields, err := parseFields(raw)
	if err != nil {
		return 0, err
	}
	return s.repo.Create(ctx, fields)
}

// Update applies the fields present in the raw request object to the
// shipment with the given id.
func (s *ShipmentService) Update(ctx context.Context, id int64, raw map[string]json.RawMessage) error {
	fields, err := parseFields(raw)
	if err != nil {
		return err
	}
	return s.repo.UpdatePartial(ctx, id, fields)
}

func (s *ShipmentService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func parseFields(raw map[string]json.RawMessage) (types.ShipmentFields, error) {
	fields, err := types.ParseShipmentFields(raw)
	if err != nil {
		var fieldErr *types.FieldError
		if errors.As(err, &fieldErr) {
			return types.ShipmentFields{}, fmt.Errorf("%w: %w", store.ErrInvalidField, fieldErr)
		}
		return types.ShipmentFields{}, err
	}
	return fields, nil
}
