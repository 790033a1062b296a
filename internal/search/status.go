package search

import (
	"errors"

	"github.com/Veraticus/paper-trail/internal/common"
	"github.com/Veraticus/paper-trail/internal/model"
)

// Status is the outcome of searching one source.
type Status string

// Source statuses.
const (
	StatusOK          Status = "ok"
	StatusAuthExpired Status = "auth_expired"
	StatusFailed      Status = "failed"
	StatusSkipped     Status = "skipped"
)

// LocalAccountID identifies the local index in AccountStatus lists.
const LocalAccountID = "local"

// AccountStatus reports how searching one source went.
type AccountStatus struct {
	ID      string           `json:"id"`
	Source  model.SourceType `json:"source"`
	Status  Status           `json:"status"`
	Error   string           `json:"error,omitempty"`
	Results int              `json:"results"`
}

// statusFor maps a source error onto a Status.
func statusFor(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, common.ErrAuthExpired):
		return StatusAuthExpired
	default:
		return StatusFailed
	}
}
