package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LineItem is one requested product/quantity entry extracted from an RFQ.
// Instances are created by an extractor and consumed read-only by the
// matching engine; they have no identity beyond structural equality.
type LineItem struct {
	Name           string `json:"name"`
	PartNumber     string `json:"part_number,omitempty"`
	Quantity       int    `json:"quantity"`
	DeliveryRegion string `json:"delivery_region,omitempty"`
}

// ExtractionResult is the outcome of running an extractor over one document.
// An empty Items slice is valid; Dropped counts raw rows that failed
// validation and were discarded.
type ExtractionResult struct {
	DueDate *time.Time
	Items   []LineItem
	Dropped int
}

// ValidationKind identifies why a raw row was rejected.
type ValidationKind string

const (
	MissingName     ValidationKind = "missing_name"
	InvalidQuantity ValidationKind = "invalid_quantity"
)

// ValidationError is a per-row, recoverable failure: the row is dropped and
// processing continues.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed (%s): field %q has value %v", e.Kind, e.Field, e.Value)
	}
	return fmt.Sprintf("validation failed (%s): field %q", e.Kind, e.Field)
}

// IsValidationKind reports whether err is, or wraps, a *ValidationError of
// the given kind.
func IsValidationKind(err error, kind ValidationKind) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Kind == kind
}

// Validate normalizes a raw extractor row into a LineItem.
// Required keys: "name" and "quantity". Optional: "part_number" and
// "delivery_region". Quantity is coerced from numeric-looking values;
// coercion failure or a quantity <= 0 rejects the row. Unknown extra keys
// are ignored for forward compatibility. No side effects.
func Validate(raw map[string]any) (LineItem, error) {
	name := trimmedString(raw["name"])
	if name == "" {
		return LineItem{}, &ValidationError{Kind: MissingName, Field: "name"}
	}

	qty, err := coerceQuantity(raw["quantity"])
	if err != nil || qty <= 0 {
		return LineItem{}, &ValidationError{Kind: InvalidQuantity, Field: "quantity", Value: raw["quantity"]}
	}

	return LineItem{
		Name:           name,
		PartNumber:     trimmedString(raw["part_number"]),
		Quantity:       qty,
		DeliveryRegion: trimmedString(raw["delivery_region"]),
	}, nil
}

func trimmedString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func coerceQuantity(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		// JSON numbers decode as float64; only whole values are quantities.
		if t != float64(int(t)) {
			return 0, fmt.Errorf("fractional quantity %v", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("non-numeric quantity %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported quantity type %T", v)
	}
}
