package storage

import (
	"context"
	"testing"

	"adhesim/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	runs := []model.RunRecord{
		{VersionedRecord: Versioned(), ID: "b", CreatedAtUTC: "2026-01-02T00:00:00Z", Steps: 5},
		{VersionedRecord: Versioned(), ID: "a", CreatedAtUTC: "2026-01-02T00:00:00Z", Steps: 3},
		{VersionedRecord: Versioned(), ID: "c", CreatedAtUTC: "2026-01-01T00:00:00Z", Steps: 1},
	}
	for _, run := range runs {
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", run.ID, err)
		}
	}

	got, ok, err := store.GetRun(ctx, "b")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok || got.Steps != 5 {
		t.Fatalf("unexpected run: ok=%t %+v", ok, got)
	}
	if _, ok, _ := store.GetRun(ctx, "missing"); ok {
		t.Fatal("expected missing run")
	}

	listed, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(listed) != 3 || listed[0].ID != "c" || listed[1].ID != "a" || listed[2].ID != "b" {
		t.Fatalf("unexpected run order: %+v", listed)
	}
}

func TestMemoryStoreInteractionsAreCopied(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.InteractionLog{{
		VersionedRecord: Versioned(),
		RunID:           "run-1",
		Step:            2,
		Moves:           map[model.ParticleID]model.Position{4: {X: 1.5, Y: 2.5}},
		Removals:        []model.ParticleID{7},
	}}
	if err := store.SaveInteractions(ctx, "run-1", input); err != nil {
		t.Fatalf("save interactions: %v", err)
	}
	input[0].Moves[4] = model.Position{}
	input[0].Removals[0] = 99

	output, ok, err := store.GetInteractions(ctx, "run-1")
	if err != nil {
		t.Fatalf("get interactions: %v", err)
	}
	if !ok || len(output) != 1 {
		t.Fatalf("unexpected interactions: ok=%t %+v", ok, output)
	}
	if output[0].Moves[4] != (model.Position{X: 1.5, Y: 2.5}) || output[0].Removals[0] != 7 {
		t.Fatalf("stored interactions were aliased: %+v", output[0])
	}
}

func TestMemoryStoreSamplesRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.AdhesionSample{
		{ID: 1, Step: 0, Size: 50, Tension: 0.2, Myosin: 0.1},
		{ID: 1, Step: 1, Size: 51, Tension: 0.3, Myosin: 0.1},
	}
	if err := store.SaveSamples(ctx, "run-1", input); err != nil {
		t.Fatalf("save samples: %v", err)
	}
	output, ok, err := store.GetSamples(ctx, "run-1")
	if err != nil {
		t.Fatalf("get samples: %v", err)
	}
	if !ok || len(output) != 2 || output[1].Size != 51 {
		t.Fatalf("unexpected samples: %+v", output)
	}
	if _, ok, _ := store.GetSamples(ctx, "run-2"); ok {
		t.Fatal("expected no samples for unknown run")
	}
}
