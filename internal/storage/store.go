package storage

import (
	"context"

	"adhesim/internal/model"
)

// Store persists run records together with the interaction diffs and
// adhesion samples recorded during each run.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveInteractions(ctx context.Context, runID string, logs []model.InteractionLog) error
	GetInteractions(ctx context.Context, runID string) ([]model.InteractionLog, bool, error)
	SaveSamples(ctx context.Context, runID string, samples []model.AdhesionSample) error
	GetSamples(ctx context.Context, runID string) ([]model.AdhesionSample, bool, error)
}
