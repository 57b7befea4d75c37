package leads

import (
	"context"

	"webcalc/internal/calculator"
)

type metaKey struct{}

// WithMeta attaches request metadata for LocalSubmitter.
func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

func MetaFromContext(ctx context.Context) Meta {
	meta, _ := ctx.Value(metaKey{}).(Meta)
	return meta
}

// LocalSubmitter lets the server side wizard submit straight into the
// service instead of going through HTTP.
type LocalSubmitter struct {
	service *Service
}

func NewLocalSubmitter(service *Service) *LocalSubmitter {
	return &LocalSubmitter{service: service}
}

func (l *LocalSubmitter) Submit(ctx context.Context, sub calculator.Submission) (*calculator.PriceResult, error) {
	return l.service.Submit(ctx, sub, MetaFromContext(ctx))
}
