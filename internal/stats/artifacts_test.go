package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"adhesim/internal/model"
)

func TestWriteRunArtifactsAndExport(t *testing.T) {
	base := t.TempDir()
	samples := []model.AdhesionSample{
		{ID: 4, Step: 1, Position: model.Position{X: 2.5, Y: 3.25}, Size: 51.5, Tension: 0.75, Myosin: 0.1},
		{ID: 9, Step: 1, Position: model.Position{X: 7, Y: 1}, Size: 50, Tension: 0, Myosin: 0.125},
	}
	runDir, err := WriteRunArtifacts(base, RunArtifacts{
		Run:     model.RunRecord{ID: "run-1", Seed: 3},
		Config:  map[string]any{"sizex": 32},
		Samples: samples,
	})
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(runDir, "run.json"))
	if err != nil {
		t.Fatalf("read run.json: %v", err)
	}
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		t.Fatalf("decode run.json: %v", err)
	}
	if run.ID != "run-1" || run.Seed != 3 {
		t.Fatalf("unexpected run: %+v", run)
	}

	loaded, ok, err := ReadSamplesCSV(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		t.Fatalf("read samples: %v", err)
	}
	if !ok || len(loaded) != 2 || loaded[0] != samples[0] || loaded[1] != samples[1] {
		t.Fatalf("unexpected samples: %+v", loaded)
	}

	out := t.TempDir()
	exported, err := ExportRunArtifacts(base, "run-1", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	for _, file := range []string{"run.json", "config.json", "summary.json", "samples.csv"} {
		if _, err := os.Stat(filepath.Join(exported, file)); err != nil {
			t.Fatalf("expected exported %s: %v", file, err)
		}
	}
}

func TestWriteRunArtifactsRequiresID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestReadSamplesCSVMissingFile(t *testing.T) {
	samples, ok, err := ReadSamplesCSV(filepath.Join(t.TempDir(), "samples.csv"))
	if err != nil || ok || samples != nil {
		t.Fatalf("expected missing file to report not found, got ok=%t err=%v", ok, err)
	}
}

func TestExportSkipsMissingConfig(t *testing.T) {
	base := t.TempDir()
	if _, err := WriteRunArtifacts(base, RunArtifacts{Run: model.RunRecord{ID: "r"}}); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	dst, err := ExportRunArtifacts(base, "r", t.TempDir())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst, "config.json")); !os.IsNotExist(err) {
		t.Fatalf("expected no config.json, got %v", err)
	}
}
