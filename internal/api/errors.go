package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc/codes"

	"github.com/barterhub/barter/internal/errs"
)

// Error kinds on the wire.
const (
	KindValidation   = "validation"
	KindNotFound     = "not_found"
	KindForbidden    = "forbidden"
	KindConflict     = "conflict"
	KindUnauthorized = "unauthorized"
	KindInternal     = "internal"
)

// Error is the body of every failed HTTP call.
type Error struct {
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	ItemIDs []uuid.UUID `json:"item_ids,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Unwrap maps the kind back to its sentinel so clients can use errors.Is.
func (e *Error) Unwrap() error {
	for _, k := range kinds {
		if k.name == e.Kind {
			return k.sentinel
		}
	}
	return nil
}

var kinds = []struct {
	sentinel error
	name     string
	code     codes.Code
	status   int
}{
	{errs.ErrValidation, KindValidation, codes.InvalidArgument, http.StatusBadRequest},
	{errs.ErrNotFound, KindNotFound, codes.NotFound, http.StatusNotFound},
	{errs.ErrForbidden, KindForbidden, codes.PermissionDenied, http.StatusForbidden},
	{errs.ErrConflict, KindConflict, codes.FailedPrecondition, http.StatusConflict},
	{errs.ErrUnauthorized, KindUnauthorized, codes.Unauthenticated, http.StatusUnauthorized},
}

// FromError classifies err. Unknown errors become KindInternal with a generic message
// so storage details never reach callers.
func FromError(err error) *Error {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			out := &Error{Kind: k.name, Message: err.Error()}
			var ie *errs.ItemsError
			if errors.As(err, &ie) {
				out.ItemIDs = ie.ItemIDs
			}
			return out
		}
	}
	return &Error{Kind: KindInternal, Message: "internal error"}
}

// Code is the gRPC code for a kind.
func Code(kind string) codes.Code {
	for _, k := range kinds {
		if k.name == kind {
			return k.code
		}
	}
	return codes.Internal
}

// KindOf is the inverse of Code.
func KindOf(c codes.Code) string {
	for _, k := range kinds {
		if k.code == c {
			return k.name
		}
	}
	return KindInternal
}

// HTTPStatus is the HTTP status for a kind.
func HTTPStatus(kind string) int {
	for _, k := range kinds {
		if k.name == kind {
			return k.status
		}
	}
	return http.StatusInternalServerError
}
