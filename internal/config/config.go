// Package config holds the simulation parameters and their defaults.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"adhesim/internal/adhesion"
	"adhesim/internal/integrin"
	"adhesim/internal/lattice"
	"adhesim/internal/matrix"
	"adhesim/internal/model"
	"adhesim/internal/mover"
	"adhesim/internal/myosin"
)

// ErrInvalid reports a parameter outside its permitted range.
var ErrInvalid = errors.New("invalid config")

// Config is the full parameter set of a run. Field names follow the
// parameter file of the lattice simulator.
type Config struct {
	SizeX int `json:"sizex"`
	SizeY int `json:"sizey"`

	NInitCells  int     `json:"n_init_cells"`
	CellRadius  float64 `json:"size_init_cells"`
	TargetArea  float64 `json:"target_area"`
	LambdaArea  float64 `json:"lambda"`
	Temperature float64 `json:"T"`
	MCS         int     `json:"mcs"`

	LambdaAct float64 `json:"lambda_Act"`
	MaxAct    float64 `json:"max_Act"`

	ExtensionMechanism  string  `json:"adhesion_extension_mechanism"`
	DisplacementSelect  string  `json:"adhesion_displacement_selection"`
	AnnihilationPenalty float64 `json:"adhesion_annihilation_penalty"`
	OverflowThreshold   int     `json:"adhesions_per_pixel_overflow"`
	OverflowPenalty     float64 `json:"adhesions_per_pixel_overflow_penalty"`
	Yielding            bool    `json:"adhesion_yielding"`
	YieldingLambda      float64 `json:"adhesion_yielding_lambda"`
	YieldingNh          float64 `json:"adhesion_yielding_Nh"`
	IntegrinN0          float64 `json:"adhesion_integrin_N0"`
	ContractionForce    float64 `json:"adhesion_contraction_force"`
	ContractionInterval int     `json:"adhesion_contraction_interval"`

	NsNt    float64 `json:"ns_Nt"`
	NsPhiS  float64 `json:"ns_phi_s"`
	NsPhiC  float64 `json:"ns_phi_c"`
	NsD0    float64 `json:"ns_d0"`
	NsGamma float64 `json:"ns_gamma"`
	NsFStar float64 `json:"ns_f_star"`
	NsDt    float64 `json:"ns_dt"`
	NsT     float64 `json:"ns_T"`

	MyosinIntegrationTime     float64 `json:"myosin_integration_time"`
	MyosinIntegrationTimestep float64 `json:"myosin_integration_timestep"`
	MyosinCreationRate        float64 `json:"myosin_creation_rate"`
	MyosinDecayRate           float64 `json:"myosin_decay_rate"`
	MyosinDefault             float64 `json:"myosin_default"`

	NumInitialAdhesions int     `json:"num_initial_adhesions"`
	AdhesionZoneRadius  float64 `json:"adhesion_zone_radius"`
	// CreateOnExtension requests new adhesions on pixels cells extended into.
	CreateOnExtension bool `json:"adhesion_creation_on_extension"`

	MatrixSpacing      float64 `json:"matrix_spacing"`
	MatrixBondK        float64 `json:"spring_k"`
	MatrixAngleK       float64 `json:"bend_k"`
	MatrixRelaxSteps   int     `json:"matrix_relax_steps"`
	MatrixRelaxDt      float64 `json:"matrix_relax_dt"`
	MatrixFixedBorders bool    `json:"fixed_boundary"`

	SampleInterval int `json:"state_output_interval"`
}

// Default returns the parameters of the reference focal adhesion model.
func Default() Config {
	return Config{
		SizeX:       100,
		SizeY:       100,
		NInitCells:  1,
		CellRadius:  15,
		TargetArea:  700,
		LambdaArea:  1,
		Temperature: 50,
		MCS:         20,

		LambdaAct: 0,
		MaxAct:    1,

		ExtensionMechanism:  string(lattice.ExtendSticky),
		DisplacementSelect:  string(mover.SelectUniform),
		AnnihilationPenalty: 0,
		OverflowThreshold:   0,
		OverflowPenalty:     600,
		Yielding:            true,
		YieldingLambda:      0,
		YieldingNh:          1,
		IntegrinN0:          50,
		ContractionForce:    0.001,
		ContractionInterval: 1,

		NsNt:    1000,
		NsPhiS:  5,
		NsPhiC:  5,
		NsD0:    1,
		NsGamma: 1,
		NsFStar: 1,
		NsDt:    0.001,
		NsT:     0.01,

		MyosinIntegrationTime:     1.0,
		MyosinIntegrationTimestep: 0.001,
		MyosinCreationRate:        0.001,
		MyosinDecayRate:           1,
		MyosinDefault:             myosin.Baseline,

		NumInitialAdhesions: 50,
		AdhesionZoneRadius:  10,
		CreateOnExtension:   true,

		MatrixSpacing:      1,
		MatrixBondK:        1,
		MatrixAngleK:       0,
		MatrixRelaxSteps:   10,
		MatrixRelaxDt:      0.05,
		MatrixFixedBorders: true,

		SampleInterval: 1,
	}
}

// Load reads a JSON parameter file on top of the defaults. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks parameter ranges and enum values.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.SizeX > 0 && c.SizeY > 0, "lattice size %dx%d", c.SizeX, c.SizeY)
	check(c.NInitCells >= 0, "n_init_cells %d", c.NInitCells)
	check(c.CellRadius > 0, "size_init_cells %g", c.CellRadius)
	check(c.Temperature > 0, "T %g", c.Temperature)
	check(c.MCS >= 0, "mcs %d", c.MCS)
	check(c.MaxAct > 0, "max_Act %g must be positive", c.MaxAct)

	if _, err := lattice.ParseExtensionMechanism(c.ExtensionMechanism); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	if _, err := mover.ParseSelectionPolicy(c.DisplacementSelect); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}
	check(c.AnnihilationPenalty >= 0, "adhesion_annihilation_penalty %g", c.AnnihilationPenalty)
	check(c.OverflowThreshold >= 0, "adhesions_per_pixel_overflow %d", c.OverflowThreshold)
	check(c.YieldingNh > 0, "adhesion_yielding_Nh %g", c.YieldingNh)
	check(c.ContractionInterval >= 0, "adhesion_contraction_interval %d", c.ContractionInterval)

	check(c.IntegrinN0 > 0 && c.IntegrinN0 <= c.NsNt, "adhesion_integrin_N0 %g outside (0, ns_Nt=%g]", c.IntegrinN0, c.NsNt)
	check(c.NsDt > 0, "ns_dt %g", c.NsDt)
	check(c.NsT >= 0, "ns_T %g", c.NsT)
	check(c.NsFStar > 0, "ns_f_star %g", c.NsFStar)
	check(c.MyosinIntegrationTimestep > 0, "myosin_integration_timestep %g", c.MyosinIntegrationTimestep)

	check(c.NumInitialAdhesions >= 0, "num_initial_adhesions %d", c.NumInitialAdhesions)
	check(c.MatrixSpacing > 0, "matrix_spacing %g", c.MatrixSpacing)
	check(c.SampleInterval >= 0, "state_output_interval %d", c.SampleInterval)
	return errors.Join(errs...)
}

func (c Config) IntegrinParams() integrin.Params {
	return integrin.Params{
		Nt:    c.NsNt,
		PhiS:  c.NsPhiS,
		PhiC:  c.NsPhiC,
		D0:    c.NsD0,
		Gamma: c.NsGamma,
		Dt:    c.NsDt,
		T:     c.NsT,
		N0:    c.IntegrinN0,
		FStar: c.NsFStar,
	}
}

func (c Config) MyosinParams() myosin.Params {
	return myosin.Params{
		CreationRate:        c.MyosinCreationRate,
		DecayRate:           c.MyosinDecayRate,
		IntegrationTime:     c.MyosinIntegrationTime,
		IntegrationTimestep: c.MyosinIntegrationTimestep,
	}
}

func (c Config) IndexConfig() adhesion.Config {
	return adhesion.Config{
		N0:            c.IntegrinN0,
		DefaultMyosin: c.MyosinDefault,
		MaxActin:      c.MaxAct,
		Integrin:      c.IntegrinParams(),
		Myosin:        c.MyosinParams(),
	}
}

func (c Config) MoverConfig() mover.Config {
	return mover.Config{
		Selection:           mover.SelectionPolicy(c.DisplacementSelect),
		Yielding:            c.Yielding,
		YieldingLambda:      c.YieldingLambda,
		YieldingNh:          c.YieldingNh,
		N0:                  c.IntegrinN0,
		AnnihilationPenalty: c.AnnihilationPenalty,
		OverflowThreshold:   c.OverflowThreshold,
		OverflowPenalty:     c.OverflowPenalty,
	}
}

// MatrixSpec lays a matrix grid over the whole lattice.
func (c Config) MatrixSpec() matrix.GridSpec {
	half := c.MatrixSpacing / 2
	return matrix.GridSpec{
		Columns:    max(2, int(float64(c.SizeX)/c.MatrixSpacing)),
		Rows:       max(2, int(float64(c.SizeY)/c.MatrixSpacing)),
		Spacing:    c.MatrixSpacing,
		Origin:     model.Position{X: half, Y: half},
		BondK:      c.MatrixBondK,
		AngleK:     c.MatrixAngleK,
		FixBorders: c.MatrixFixedBorders,
	}
}
