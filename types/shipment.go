package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Shipment represents one coal barge loading record tracked by the dashboard.
type Shipment struct {
	// ID is the auto-incrementing identifier of the record.
	ID int64 `json:"id" db:"id"`

	// TugBargeName is the name of the tug and barge pair being loaded.
	TugBargeName string `json:"tug_barge_name" db:"tug_barge_name"`

	// Brand is the coal brand (product grade) being shipped.
	Brand string `json:"brand" db:"brand"`

	// Tonnage is the cargo weight in metric tonnes.
	Tonnage float64 `json:"tonnage" db:"tonnage"`

	// Buyer is the purchasing party.
	Buyer string `json:"buyer" db:"buyer"`

	// POD is the port of discharge.
	POD string `json:"pod" db:"pod"`

	// Jetty is the loading jetty.
	Jetty Jetty `json:"jetty" db:"jetty"`

	// Status is the current loading status.
	Status ShipmentStatus `json:"status" db:"status"`

	// EstCommencedLoading is the estimated start of loading, if known.
	EstCommencedLoading *time.Time `json:"est_commenced_loading" db:"est_commenced_loading"`

	// EstCompletedLoading is the estimated end of loading, if known.
	EstCompletedLoading *time.Time `json:"est_completed_loading" db:"est_completed_loading"`

	// RataRataMuat is the average loading duration, expressed as a
	// time-of-day value (HH:MM:SS).
	RataRataMuat *TimeOfDay `json:"rata_rata_muat" db:"rata_rata_muat"`

	// SISPK is the shipping instruction / purchase order reference.
	SISPK *string `json:"si_spk" db:"si_spk"`
}

// Jetty identifies a loading jetty.
type Jetty string

// Known jetties.
const (
	JettyEnim Jetty = "Enim"
	JettyOgan Jetty = "Ogan"
)

// Valid reports whether j is a known jetty.
func (j Jetty) Valid() bool {
	switch j {
	case JettyEnim, JettyOgan:
		return true
	default:
		return false
	}
}

// ShipmentStatus is the loading progress of a shipment.
type ShipmentStatus string

// Known statuses.
const (
	StatusLoading      ShipmentStatus = "Loading"
	StatusAtDolphin    ShipmentStatus = "At Dolphin"
	StatusETAKeramasan ShipmentStatus = "ETA Keramasan"
)

// Valid reports whether s is a known status.
func (s ShipmentStatus) Valid() bool {
	switch s {
	case StatusLoading, StatusAtDolphin, StatusETAKeramasan:
		return true
	default:
		return false
	}
}

// TimeOfDay is a wall-clock duration value with second precision.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time of day %q", raw)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value implements driver.Valuer.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.String(), nil
}

// Scan implements sql.Scanner. The postgres driver yields TIME columns as
// time.Time on the zero date.
func (t *TimeOfDay) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = TimeOfDay{Hour: v.Hour(), Minute: v.Minute(), Second: v.Second()}
		return nil
	case []byte:
		parsed, err := ParseTimeOfDay(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case string:
		parsed, err := ParseTimeOfDay(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into TimeOfDay", src)
	}
}

// ShipmentField names one updatable attribute of a Shipment. The value is
// both the JSON key and the column name.
type ShipmentField string

// Updatable shipment fields.
const (
	FieldTugBargeName        ShipmentField = "tug_barge_name"
	FieldBrand               ShipmentField = "brand"
	FieldTonnage             ShipmentField = "tonnage"
	FieldBuyer               ShipmentField = "buyer"
	FieldPOD                 ShipmentField = "pod"
	FieldJetty               ShipmentField = "jetty"
	FieldStatus              ShipmentField = "status"
	FieldEstCommencedLoading ShipmentField = "est_commenced_loading"
	FieldEstCompletedLoading ShipmentField = "est_completed_loading"
	FieldRataRataMuat        ShipmentField = "rata_rata_muat"
	FieldSISPK               ShipmentField = "si_spk"
)

// ShipmentFieldOrder lists every updatable field in column order.
var ShipmentFieldOrder = []ShipmentField{
	FieldTugBargeName,
	FieldBrand,
	FieldTonnage,
	FieldBuyer,
	FieldPOD,
	FieldJetty,
	FieldStatus,
	FieldEstCommencedLoading,
	FieldEstCompletedLoading,
	FieldRataRataMuat,
	FieldSISPK,
}

// Required reports whether the field must be non-empty on a record.
func (f ShipmentField) Required() bool {
	switch f {
	case FieldTugBargeName, FieldBrand, FieldTonnage, FieldBuyer, FieldPOD, FieldJetty, FieldStatus:
		return true
	default:
		return false
	}
}

// FieldError reports a field whose supplied value has the wrong shape.
type FieldError struct {
	Field  ShipmentField
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// FieldAssignment is one column/value pair. A nil Value means SQL NULL.
type FieldAssignment struct {
	Field ShipmentField
	Value any
}

// ShipmentFields is the set of fields supplied by a client, keeping
// "present with null" distinct from "absent".
type ShipmentFields struct {
	values map[ShipmentField]any
}

// NewShipmentFields returns an empty field set.
func NewShipmentFields() ShipmentFields {
	return ShipmentFields{values: make(map[ShipmentField]any)}
}

// Set records a value for field. Pass nil for an explicit null.
func (f *ShipmentFields) Set(field ShipmentField, value any) {
	if f.values == nil {
		f.values = make(map[ShipmentField]any)
	}
	f.values[field] = value
}

// Get returns the value for field and whether it was supplied.
func (f ShipmentFields) Get(field ShipmentField) (any, bool) {
	v, ok := f.values[field]
	return v, ok
}

// Has reports whether field was supplied.
func (f ShipmentFields) Has(field ShipmentField) bool {
	_, ok := f.values[field]
	return ok
}

// Len is the number of supplied fields.
func (f ShipmentFields) Len() int {
	return len(f.values)
}

// Assignments returns the supplied fields in column order.
func (f ShipmentFields) Assignments() []FieldAssignment {
	out := make([]FieldAssignment, 0, len(f.values))
	for _, field := range ShipmentFieldOrder {
		if v, ok := f.values[field]; ok {
			out = append(out, FieldAssignment{Field: field, Value: v})
		}
	}
	return out
}

// MissingRequired returns the required fields that are absent or null.
func (f ShipmentFields) MissingRequired() []ShipmentField {
	var missing []ShipmentField
	for _, field := range ShipmentFieldOrder {
		if !field.Required() {
			continue
		}
		if v, ok := f.values[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}
	return missing
}

type fieldDecoder func(raw json.RawMessage) (any, error)

var shipmentFieldDecoders = map[ShipmentField]fieldDecoder{
	FieldTugBargeName:        decodeText,
	FieldBrand:               decodeText,
	FieldTonnage:             decodeTonnage,
	FieldBuyer:               decodeText,
	FieldPOD:                 decodeText,
	FieldJetty:               decodeJetty,
	FieldStatus:              decodeStatus,
	FieldEstCommencedLoading: decodeTimestamp,
	FieldEstCompletedLoading: decodeTimestamp,
	FieldRataRataMuat:        decodeTimeOfDay,
	FieldSISPK:               decodeText,
}

// ParseShipmentFields builds a field set from a decoded JSON object.
// Keys outside the allowlist are ignored. JSON null and empty strings are
// recorded as explicit nulls.
func ParseShipmentFields(raw map[string]json.RawMessage) (ShipmentFields, error) {
	fields := NewShipmentFields()
	for _, field := range ShipmentFieldOrder {
		value, ok := raw[string(field)]
		if !ok {
			continue
		}
		decoded, err := shipmentFieldDecoders[field](value)
		if err != nil {
			return ShipmentFields{}, &FieldError{Field: field, Reason: err.Error()}
		}
		fields.Set(field, decoded)
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// decodeString returns nil for null and blank strings.
func decodeString(raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

func decodeText(raw json.RawMessage) (any, error) {
	s, err := decodeString(raw)
	if err != nil || s == nil {
		return nil, err
	}
	return *s, nil
}

// decodeTonnage accepts a JSON number or a numeric string. Zero is treated
// as empty.
// maxTonnage is the exclusive upper bound of a NUMERIC(12,2) column.
const maxTonnage = 1e10

func decodeTonnage(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		s, strErr := decodeString(raw)
		if strErr != nil {
			return nil, fmt.Errorf("must be a number")
		}
		if s == nil {
			return nil, nil
		}
		n, err = strconv.ParseFloat(*s, 64)
		if err != nil {
			return nil, fmt.Errorf("must be a number")
		}
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n >= maxTonnage {
		return nil, fmt.Errorf("must be a finite number")
	}
	if n < 0 {
		return nil, fmt.Errorf("must not be negative")
	}
	if n == 0 {
		return nil, nil
	}
	return n, nil
}

func decodeJetty(raw json.RawMessage) (any, error) {
	s, err := decodeString(raw)
	if err != nil || s == nil {
		return nil, err
	}
	if !Jetty(*s).Valid() {
		return nil, fmt.Errorf("unknown jetty %q", *s)
	}
	return *s, nil
}

func decodeStatus(raw json.RawMessage) (any, error) {
	s, err := decodeString(raw)
	if err != nil || s == nil {
		return nil, err
	}
	if !ShipmentStatus(*s).Valid() {
		return nil, fmt.Errorf("unknown status %q", *s)
	}
	return *s, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC 3339 and the layouts HTML datetime-local
// inputs produce. Values without an offset are read as UTC and values with
// one are converted to UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
}

func decodeTimestamp(raw json.RawMessage) (any, error) {
	s, err := decodeString(raw)
	if err != nil || s == nil {
		return nil, err
	}
	return ParseTimestamp(*s)
}

func decodeTimeOfDay(raw json.RawMessage) (any, error) {
	s, err := decodeString(raw)
	if err != nil || s == nil {
		return nil, err
	}
	return ParseTimeOfDay(*s)
}
