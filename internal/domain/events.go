package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRegisteredEvent is emitted by the ledger for every registered
// transaction and consumed by the balance consolidation.
type TransactionRegisteredEvent struct {
	TransactionID   string
	TransactionDate time.Time
	Amount          decimal.Decimal
	Type            TransactionType
}

// eventWire is the JSON shape shared with existing producers and consumers:
// PascalCase keys, numeric amount, integer type.
type eventWire struct {
	TransactionID   string          `json:"TransactionId"`
	TransactionDate string          `json:"TransactionDate"`
	Amount          json.RawMessage `json:"Amount"`
	Type            TransactionType `json:"Type"`
}

// layouts accepted for TransactionDate; the last one has no zone and is
// read as UTC.
var eventDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02",
}

// MarshalJSON implements json.Marshaler.
func (e TransactionRegisteredEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(eventWire{
		TransactionID:   e.TransactionID,
		TransactionDate: e.TransactionDate.Format(time.RFC3339Nano),
		Amount:          json.RawMessage(e.Amount.String()),
		Type:            e.Type,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *TransactionRegisteredEvent) UnmarshalJSON(data []byte) error {
	var w eventWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	date, err := parseEventDate(w.TransactionDate)
	if err != nil {
		return err
	}

	var amount decimal.Decimal
	if len(w.Amount) > 0 {
		if err := amount.UnmarshalJSON(w.Amount); err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}
	}

	e.TransactionID = w.TransactionID
	e.TransactionDate = date
	e.Amount = amount
	e.Type = w.Type

	return nil
}

func parseEventDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range eventDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid transaction date %q", s)
}

// EncodeEvent serializes an event into the string stored in the buffer.
func EncodeEvent(e TransactionRegisteredEvent) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeEvent parses one buffered entry.
func DecodeEvent(raw string) (TransactionRegisteredEvent, error) {
	var e TransactionRegisteredEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return e, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if !e.Type.IsValid() {
		return e, fmt.Errorf("%w: %v", ErrMalformedEvent, ErrInvalidType)
	}
	return e, nil
}

// EncodeEnvelope wraps raw buffered entries into one batch message body.
// Each entry stays a JSON string inside the array, so events are
// double-encoded on the wire.
func EncodeEnvelope(entries []string) ([]byte, error) {
	if entries == nil {
		entries = []string{}
	}
	return json.Marshal(entries)
}

// DecodeEnvelope is the inverse of EncodeEnvelope.
func DecodeEnvelope(body []byte) ([]string, error) {
	var entries []string
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return entries, nil
}

// DecodeBatch decodes an envelope and every event in it before anything is
// dispatched. Null elements are skipped; any other element that fails to
// decode fails the whole batch with ErrMalformedEvent.
func DecodeBatch(body []byte) ([]TransactionRegisteredEvent, error) {
	var entries []*string
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	events := make([]TransactionRegisteredEvent, 0, len(entries))
	for i, raw := range entries {
		if raw == nil || strings.TrimSpace(*raw) == "null" {
			continue
		}

		e, err := DecodeEvent(*raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		events = append(events, e)
	}

	return events, nil
}
