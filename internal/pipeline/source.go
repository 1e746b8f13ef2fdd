package pipeline

import (
	"context"

	"github.com/tphakala/rqm-etl/internal/model"
	"github.com/tphakala/rqm-etl/internal/upstream"
)

// Session is a query handle pinned to one selected tenant database.
type Session interface {
	upstream.Querier
	Close() error
}

// Source enumerates tenants and opens sessions against them.
type Source interface {
	Discover(ctx context.Context) ([]model.Tenant, error)
	OpenSession(ctx context.Context, tenant model.Tenant) (Session, error)
}

// Store is the append-only sink the driver loads records into.
type Store interface {
	EnsureSchema(ctx context.Context) error
	AppendBias(ctx context.Context, date model.ProcessingDate, rec *model.BiasRecord) error
	AppendDetectionRate(ctx context.Context, date model.ProcessingDate, rec *model.DetectionRateRecord) error
}

type upstreamSource struct {
	src *upstream.Source
}

// FromUpstream adapts an upstream connection pool to Source.
func FromUpstream(src *upstream.Source) Source {
	return upstreamSource{src: src}
}

func (u upstreamSource) Discover(ctx context.Context) ([]model.Tenant, error) {
	return u.src.Discover(ctx)
}

func (u upstreamSource) OpenSession(ctx context.Context, tenant model.Tenant) (Session, error) {
	s, err := u.src.OpenSession(ctx, tenant)
	if err != nil {
		// keep the interface nil rather than a typed nil pointer
		return nil, err
	}
	return s, nil
}
