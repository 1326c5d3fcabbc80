package storage

import (
	"errors"
	"testing"

	"adhesim/internal/model"
)

func TestRunCodecRoundTrip(t *testing.T) {
	run := model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              "run-1",
		Seed:            7,
		Adhesions:       12,
		MeanSize:        61.5,
	}
	data, err := EncodeRun(run)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeRun(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded != run {
		t.Fatalf("round trip mismatch: %+v != %+v", decoded, run)
	}
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "run-1",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestDecodeInteractionsChecksEveryLog(t *testing.T) {
	logs := []model.InteractionLog{
		{VersionedRecord: Versioned(), Step: 1},
		{Step: 2},
	}
	data, err := EncodeInteractions(logs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeInteractions(data); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}

func TestInteractionsCodecKeepsMoves(t *testing.T) {
	logs := []model.InteractionLog{{
		VersionedRecord: Versioned(),
		RunID:           "run-1",
		Moves:           map[model.ParticleID]model.Position{3: {X: 2.25, Y: -1}},
		Removals:        []model.ParticleID{5, 8},
	}}
	data, err := EncodeInteractions(logs)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeInteractions(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[0].Moves[3] != (model.Position{X: 2.25, Y: -1}) || len(decoded[0].Removals) != 2 {
		t.Fatalf("unexpected decoded log: %+v", decoded[0])
	}
}

func TestDecodeSamplesRejectsGarbage(t *testing.T) {
	if _, err := DecodeSamples([]byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
