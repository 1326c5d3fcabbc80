package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"adhesim/internal/lattice"
	"adhesim/internal/mover"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDefaultsFollowReferenceModel(t *testing.T) {
	cfg := Default()
	if cfg.ExtensionMechanism != string(lattice.ExtendSticky) {
		t.Fatalf("unexpected extension mechanism: %s", cfg.ExtensionMechanism)
	}
	if cfg.DisplacementSelect != string(mover.SelectUniform) {
		t.Fatalf("unexpected displacement selection: %s", cfg.DisplacementSelect)
	}
	if !cfg.Yielding || cfg.YieldingNh != 1 || cfg.OverflowPenalty != 600 {
		t.Fatalf("unexpected yielding defaults: %+v", cfg)
	}
	p := cfg.IntegrinParams()
	if p.Nt != 1000 || p.N0 != 50 || p.Dt != 0.001 {
		t.Fatalf("unexpected integrin params: %+v", p)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"sizex": 64,
		"adhesion_displacement_selection": "gradient",
		"adhesion_yielding": false,
		"ns_Nt": 2000,
		"myosin_decay_rate": 0.5
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SizeX != 64 || cfg.SizeY != 100 {
		t.Fatalf("unexpected lattice size: %dx%d", cfg.SizeX, cfg.SizeY)
	}
	if cfg.MoverConfig().Selection != mover.SelectGradient || cfg.MoverConfig().Yielding {
		t.Fatalf("unexpected mover config: %+v", cfg.MoverConfig())
	}
	if cfg.IndexConfig().Integrin.Nt != 2000 {
		t.Fatalf("unexpected index integrin Nt: %g", cfg.IndexConfig().Integrin.Nt)
	}
	if cfg.MyosinParams().DecayRate != 0.5 {
		t.Fatalf("unexpected myosin decay: %g", cfg.MyosinParams().DecayRate)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `{"adhesion_teleport": true}`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "adhesion_teleport") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, `{"adhesion_extension_mechanism": "glue", "max_Act": 0}`)
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	for _, want := range []string{"glue", "max_Act"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error: %v", want, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateN0WithinCapacity(t *testing.T) {
	cfg := Default()
	cfg.IntegrinN0 = cfg.NsNt + 1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestValidateRejectsNonPositiveN0(t *testing.T) {
	for _, n0 := range []float64{0, -1} {
		cfg := Default()
		cfg.IntegrinN0 = n0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("N0=%g: expected ErrInvalid, got %v", n0, err)
		}
	}
}

func TestMatrixSpecCoversLattice(t *testing.T) {
	cfg := Default()
	cfg.SizeX, cfg.SizeY, cfg.MatrixSpacing = 20, 10, 2
	spec := cfg.MatrixSpec()
	if spec.Columns != 10 || spec.Rows != 5 {
		t.Fatalf("unexpected matrix grid %dx%d", spec.Columns, spec.Rows)
	}
	if spec.Origin.X != 1 || spec.Origin.Y != 1 {
		t.Fatalf("unexpected origin %v", spec.Origin)
	}
}
