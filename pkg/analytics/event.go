package analytics

import (
	"encoding/json"
	"errors"
	"maps"
	"reflect"
	"strings"
)

// ErrEmptyName is returned when an event is constructed without a name.
var ErrEmptyName = errors.New("analytics: event name is empty")

// Event is a reportable occurrence.
type Event interface {
	Name() string
	Params() map[string]any
}

// CustomEvent is a data holder for generic events logged in analytics SDKs.
// It is immutable: the parameter mapping is copied on the way in and out.
type CustomEvent struct {
	name   string
	params map[string]any
}

var _ Event = CustomEvent{}

// NewCustomEvent validates name and returns the event. params may be nil.
func NewCustomEvent(name string, params map[string]any) (CustomEvent, error) {
	if strings.TrimSpace(name) == "" {
		return CustomEvent{}, ErrEmptyName
	}
	return CustomEvent{name: name, params: maps.Clone(params)}, nil
}

// MustCustomEvent is like NewCustomEvent but panics on an empty name.
func MustCustomEvent(name string, params map[string]any) CustomEvent {
	e, err := NewCustomEvent(name, params)
	if err != nil {
		panic(err)
	}
	return e
}

func (e CustomEvent) Name() string { return e.name }

// Params returns a copy of the parameters, or nil when there are none.
func (e CustomEvent) Params() map[string]any {
	return maps.Clone(e.params)
}

// Equal reports whether other has the same name and parameters.
func (e CustomEvent) Equal(other Event) bool {
	return Equal(e, other)
}

// Equal compares two events structurally. A nil and an empty parameter
// mapping both mean "no parameters" and compare equal.
func Equal(a, b Event) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Name() != b.Name() {
		return false
	}
	pa, pb := a.Params(), b.Params()
	if len(pa) == 0 && len(pb) == 0 {
		return true
	}
	return reflect.DeepEqual(pa, pb)
}

type wireEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

func (e CustomEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{Name: e.name, Params: e.params})
}

func (e *CustomEvent) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := NewCustomEvent(w.Name, w.Params)
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// FromEvent converts any Event into a CustomEvent.
func FromEvent(ev Event) (CustomEvent, error) {
	if ce, ok := ev.(CustomEvent); ok {
		return ce, nil
	}
	if ev == nil {
		return CustomEvent{}, ErrEmptyName
	}
	return NewCustomEvent(ev.Name(), ev.Params())
}
