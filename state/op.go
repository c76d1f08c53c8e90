// Package state models the lifecycle of an admin operation as an explicit
// value: Idle, Loading, Success with data, or Failure with a message.
package state

import "encoding/json"

// Status of an operation.
type Status string

const (
	Idle    Status = "idle"
	Loading Status = "loading"
	Success Status = "success"
	Failure Status = "failure"
)

// Op is the state of one operation producing a T.
type Op[T any] struct {
	status  Status
	data    T
	message string
	kind    string
}

func NewIdle[T any]() Op[T] {
	return Op[T]{status: Idle}
}

func NewLoading[T any]() Op[T] {
	return Op[T]{status: Loading}
}

func NewSuccess[T any](data T) Op[T] {
	return Op[T]{status: Success, data: data}
}

// NewFailure records a failure with its user-facing message and error kind.
func NewFailure[T any](message, kind string) Op[T] {
	return Op[T]{status: Failure, message: message, kind: kind}
}

func (o Op[T]) Status() Status { return o.status }

// Data returns the result; ok is false unless the operation succeeded.
func (o Op[T]) Data() (data T, ok bool) {
	return o.data, o.status == Success
}

// Message returns the failure message, empty otherwise.
func (o Op[T]) Message() string { return o.message }

func (o Op[T]) Kind() string { return o.kind }

type opJSON[T any] struct {
	Status Status `json:"status"`
	Data   *T     `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

func (o Op[T]) MarshalJSON() ([]byte, error) {
	out := opJSON[T]{Status: o.status}
	if o.status == "" {
		out.Status = Idle
	}
	switch o.status {
	case Success:
		data := o.data
		out.Data = &data
	case Failure:
		out.Error = o.message
		out.Kind = o.kind
	}
	return json.Marshal(out)
}

func (o *Op[T]) UnmarshalJSON(b []byte) error {
	var in opJSON[T]
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*o = Op[T]{status: in.Status, message: in.Error, kind: in.Kind}
	if in.Data != nil {
		o.data = *in.Data
	}
	return nil
}
