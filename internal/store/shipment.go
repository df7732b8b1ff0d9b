package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coaltrack/apiserver/types"
)

const shipmentColumns = `id, tug_barge_name, brand, tonnage, buyer, pod, jetty, status,
		est_commenced_loading, est_completed_loading, rata_rata_muat, si_spk`

// ShipmentRepository handles persistence for shipment records.
type ShipmentRepository struct {
	pool Pool
}

func NewShipmentRepository(pool Pool) *ShipmentRepository {
	return &ShipmentRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (types.Shipment, error) {
	var (
		shipment  types.Shipment
		commenced sql.Null[time.Time]
		completed sql.Null[time.Time]
		muat      sql.Null[types.TimeOfDay]
		siSPK     sql.Null[string]
	)
	if err := row.Scan(
		&shipment.ID,
		&shipment.TugBargeName,
		&shipment.Brand,
		&shipment.Tonnage,
		&shipment.Buyer,
		&shipment.POD,
		&shipment.Jetty,
		&shipment.Status,
		&commenced,
		&completed,
		&muat,
		&siSPK,
	); err != nil {
		return types.Shipment{}, err
	}

	if commenced.Valid {
		shipment.EstCommencedLoading = &commenced.V
	}
	if completed.Valid {
		shipment.EstCompletedLoading = &completed.V
	}
	if muat.Valid {
		shipment.RataRataMuat = &muat.V
	}
	if siSPK.Valid {
		shipment.SISPK = &siSPK.V
	}
	return shipment, nil
}

// List returns every shipment ordered by ascending id. An empty table
// yields an empty, non-nil slice.
func (r *ShipmentRepository) List(ctx context.Context) ([]types.Shipment, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + shipmentColumns + ` FROM shipping_data ORDER BY id ASC`
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	shipments := make([]types.Shipment, 0)
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, shipment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return shipments, nil
}

func (r *ShipmentRepository) Get(ctx context.Context, id int64) (types.Shipment, error) {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return types.Shipment{}, err
	}

	query := `SELECT ` + shipmentColumns + ` FROM shipping_data WHERE id = $1`
	shipment, err := scanShipment(conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Shipment{}, ErrNotFound
		}
		return types.Shipment{}, fmt.Errorf("query shipment: %w", err)
	}
	return shipment, nil
}

// Create inserts a shipment and returns its id. Absent optional fields are
// stored as NULL. Nothing is written when a required field is missing.
func (r *ShipmentRepository) Create(ctx context.Context, fields types.ShipmentFields) (int64, error) {
	if missing := fields.MissingRequired(); len(missing) > 0 {
		return 0, fmt.Errorf("%w: %s", ErrMissingRequiredFields, joinFields(missing))
	}

	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return 0, err
	}

	columns := make([]string, 0, len(types.ShipmentFieldOrder))
	placeholders := make([]string, 0, len(types.ShipmentFieldOrder))
	args := make([]any, 0, len(types.ShipmentFieldOrder))
	for i, field := range types.ShipmentFieldOrder {
		value, _ := fields.Get(field)
		columns = append(columns, string(field))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, value)
	}

	query := fmt.Sprintf(
		`INSERT INTO shipping_data (%s) VALUES (%s) RETURNING id`,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	var id int64
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert shipment: %w", err)
	}
	return id, nil
}

// UpdatePartial writes only the supplied fields. Omitted fields keep their
// stored values and explicit nulls on optional fields clear them.
func (r *ShipmentRepository) UpdatePartial(ctx context.Context, id int64, fields types.ShipmentFields) error {
	assignments := fields.Assignments()
	if len(assignments) == 0 {
		return ErrNoFieldsToUpdate
	}
	for _, a := range assignments {
		if a.Value == nil && a.Field.Required() {
			return fmt.Errorf("%w: %w", ErrInvalidField, &types.FieldError{Field: a.Field, Reason: "must not be empty"})
		}
	}

	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return err
	}

	sets := make([]string, 0, len(assignments))
	args := make([]any, 0, len(assignments)+1)
	for i, a := range assignments {
		sets = append(sets, fmt.Sprintf("%s = $%d", a.Field, i+1))
		args = append(args, a.Value)
	}
	args = append(args, id)

	query := fmt.Sprintf(
		`UPDATE shipping_data SET %s WHERE id = $%d`,
		strings.Join(sets, ", "),
		len(args),
	)
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ShipmentRepository) Delete(ctx context.Context, id int64) error {
	conn, err := acquire(ctx, r.pool)
	if err != nil {
		return err
	}

	const query = `DELETE FROM shipping_data WHERE id = $1`
	result, err := conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func joinFields(fields []types.ShipmentField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
