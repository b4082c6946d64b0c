package models

import (
	"bytes"
	"encoding/json"
	"math"
)

var jsonNull = []byte("null")

// Optional holds a value that may be absent. The zero value is absent and
// marshals to JSON null, which keeps "not fetched yet" apart from a real zero.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// OrElse returns the value when present, def otherwise.
func (o Optional[T]) OrElse(def T) T {
	if o.Set {
		return o.Value
	}
	return def
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return jsonNull, nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// RoundHalfUp rounds to the nearest integer with halves going towards +Inf
// (2.5 -> 3, -2.5 -> -2), matching the rounding the dashboard firmware expects.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
