// Package http provides http transport for the audit trail
package http

import (
	stdhttp "net/http"
	"time"

	"listingsync/internal/modkit/httpkit"
	perr "listingsync/internal/platform/errors"
	"listingsync/internal/services/audit/domain"

	"github.com/google/uuid"
)

// Register mounts the run endpoints on r
func Register(r httpkit.Router, s domain.Reader) {
	h := &handlers{svc: s}

	// runs by source, status and start window
	httpkit.PostJSON[domain.QueryInput](r, "/query", h.query)

	// one run plus its skipped records
	httpkit.Get(r, "/{id}", h.get)
}

type handlers struct{ svc domain.Reader }

func (h *handlers) query(r *stdhttp.Request, in domain.QueryInput) (any, error) {
	f, err := toFilter(in)
	if err != nil {
		return nil, err
	}
	return h.svc.Query(r.Context(), f)
}

func (h *handlers) get(r *stdhttp.Request) (any, error) {
	id, err := uuid.Parse(httpkit.Param(r, "id"))
	if err != nil {
		return nil, perr.WithField(perr.InvalidArgf("run id must be a uuid"), "id")
	}
	o, err := h.svc.Run(r.Context(), id)
	if err != nil {
		return nil, err
	}
	fails, err := h.svc.Failures(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return domain.RunDetail{RunOutcome: o, Failures: fails}, nil
}

func toFilter(in domain.QueryInput) (domain.Filter, error) {
	f := domain.Filter{Source: in.Source, Status: domain.Status(in.Status), Limit: in.Limit}
	var err error
	if in.From != "" {
		if f.From, err = time.Parse(time.RFC3339, in.From); err != nil {
			return f, perr.WithField(perr.InvalidArgf("from: %v", err), "from")
		}
	}
	if in.To != "" {
		if f.To, err = time.Parse(time.RFC3339, in.To); err != nil {
			return f, perr.WithField(perr.InvalidArgf("to: %v", err), "to")
		}
	}
	return f, nil
}
