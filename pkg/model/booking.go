package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IDField is the only booking field the server interprets.
const IDField = "id"

var ErrNotAnObject = errors.New("booking must be a JSON object")

// Booking is a schema-less booking record. Values are kept as the raw JSON
// the client sent, so field order, number precision and number spelling
// survive every round trip.
type Booking struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewBooking() *Booking {
	return &Booking{fields: orderedmap.New[string, json.RawMessage]()}
}

// DecodeBooking parses a request or storage payload into a Booking.
func DecodeBooking(data []byte) (*Booking, error) {
	b := &Booking{}
	if err := b.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return b, nil
}

// DecodeValue turns a raw field value into plain Go values. Numbers decode
// as json.Number so no precision is lost.
func DecodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ID returns the numeric id of the booking. Non-integral or missing ids
// report false.
func (b *Booking) ID() (int, bool) {
	raw, ok := b.Raw(IDField)
	if !ok {
		return 0, false
	}
	v, err := DecodeValue(raw)
	if err != nil {
		return 0, false
	}
	return toInt(v)
}

// SetID overwrites the id field in place, or appends it when absent.
func (b *Booking) SetID(id int) {
	b.SetRaw(IDField, json.RawMessage(strconv.Itoa(id)))
}

// Get returns the decoded value of key.
func (b *Booking) Get(key string) (any, bool) {
	raw, ok := b.Raw(key)
	if !ok {
		return nil, false
	}
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Raw returns the stored JSON of key.
func (b *Booking) Raw(key string) (json.RawMessage, bool) {
	if b == nil || b.fields == nil {
		return nil, false
	}
	return b.fields.Get(key)
}

// Set encodes value and stores it under key.
func (b *Booking) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	b.SetRaw(key, raw)
	return nil
}

func (b *Booking) SetRaw(key string, raw json.RawMessage) {
	if b.fields == nil {
		b.fields = orderedmap.New[string, json.RawMessage]()
	}
	b.fields.Set(key, raw)
}

func (b *Booking) Len() int {
	if b.fields == nil {
		return 0
	}
	return b.fields.Len()
}

// Keys returns the field names in stored order.
func (b *Booking) Keys() []string {
	keys := make([]string, 0, b.Len())
	b.Range(func(key string, _ json.RawMessage) {
		keys = append(keys, key)
	})
	return keys
}

// Range calls fn for every field in stored order.
func (b *Booking) Range(fn func(key string, raw json.RawMessage)) {
	if b.fields == nil {
		return
	}
	for pair := b.fields.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Merge shallow-merges patch into b: keys present in patch overwrite or
// extend b, every other key of b is left untouched.
func (b *Booking) Merge(patch *Booking) {
	patch.Range(func(key string, raw json.RawMessage) {
		b.SetRaw(key, raw)
	})
}

func (b *Booking) Clone() *Booking {
	clone := NewBooking()
	b.Range(func(key string, raw json.RawMessage) {
		clone.fields.Set(key, bytes.Clone(raw))
	})
	return clone
}

func (b *Booking) MarshalJSON() ([]byte, error) {
	if b.fields == nil {
		return []byte("{}"), nil
	}
	return b.fields.MarshalJSON()
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ErrNotAnObject
	}
	if !json.Valid(trimmed) {
		return errors.New("booking is not valid JSON")
	}

	fields := orderedmap.New[string, json.RawMessage]()
	if err := fields.UnmarshalJSON(trimmed); err != nil {
		return err
	}
	b.fields = fields
	return nil
}

func toInt(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := strconv.ParseInt(string(n), 10, 0); err == nil {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return integral(f)
}

func integral(f float64) (int, bool) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}
