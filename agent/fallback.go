package agent

import (
	"context"

	"tanyabot/qa"
)

// Resolver produces an answer for a query from some knowledge source.
// ok is false when it has nothing; failures are reported the same way.
type Resolver interface {
	Resolve(ctx context.Context, query string) (answer string, ok bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, query string) (string, bool)

func (f ResolverFunc) Resolve(ctx context.Context, query string) (string, bool) {
	return f(ctx, query)
}

// TrainingFallback answers from the closest previously looked-up query in the
// training log. It stands in for a trained classifier.
type TrainingFallback struct {
	log       *qa.TrainingLog
	threshold int
}

func NewTrainingFallback(log *qa.TrainingLog, threshold int) *TrainingFallback {
	if threshold <= 0 {
		threshold = qa.DefaultThreshold
	}
	return &TrainingFallback{log: log, threshold: threshold}
}

func (f *TrainingFallback) Resolve(_ context.Context, query string) (string, bool) {
	rec, ok := f.log.Nearest(query, f.threshold)
	if !ok {
		return "", false
	}
	return rec.Response, true
}
