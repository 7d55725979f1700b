package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/barterhub/barter/internal/api"
	"github.com/barterhub/barter/internal/auth"
	"github.com/barterhub/barter/internal/convert"
	"github.com/barterhub/barter/internal/errs"
	"github.com/barterhub/barter/internal/model"
)

const maxBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(kind, msg string) *api.Error { return &api.Error{Kind: kind, Message: msg} }

// fail writes err as an api.Error. Internal errors are logged, not returned.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := api.FromError(err)
	if e.Kind == api.KindInternal {
		h.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeJSON(w, api.HTTPStatus(e.Kind), e)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: invalid JSON body: %v", errs.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad id %q", errs.ErrValidation, chi.URLParam(r, "id"))
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", errs.ErrValidation, name, v)
	}
	return n, nil
}

func actor(r *http.Request) uuid.UUID {
	id, _ := auth.ActorFromContext(r.Context())
	return id
}

// transition runs a single-id offer state change.
func (h *handlers) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*model.Offer, error)) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := fn(r.Context(), actor(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convert.ToAPIOffer(*o))
}
