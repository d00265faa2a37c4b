package persistence

import (
	"github.com/dd0wney/provenance-graph/pkg/schema"
)

// Status tags a Result.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
	StatusNotFound Status = "not-found"
)

// Result is what every adapter operation returns. Failures are values, never
// panics or bare errors.
type Result struct {
	Status  Status          `json:"result"`
	Items   []schema.Record `json:"items,omitempty"`
	Message string          `json:"message,omitempty"`
	Err     error           `json:"-"`
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// Error returns the underlying error, or nil on success.
func (r Result) Error() error {
	if r.OK() {
		return nil
	}
	return r.Err
}

func success(items ...schema.Record) Result {
	return Result{Status: StatusSuccess, Items: items}
}

func failure(err error) Result {
	return Result{Status: StatusError, Message: err.Error(), Err: err}
}

func notFound(err error) Result {
	return Result{Status: StatusNotFound, Message: err.Error(), Err: err}
}
