package main

import (
	"encoding/json"
	"fmt"
	"os"

	"adhesim/internal/config"
	"adhesim/pkg/adhesim"
)

// runConfig is the driver-level run description: which parameter file to
// use, the seed and step counts, and a few parameter overrides.
type runConfig struct {
	ParamsPath     string
	Seed           int64
	Steps          int
	SampleInterval int

	Extension string
	Selection string
	Yielding  *bool
	LambdaAct *float64
}

func loadRunConfig(path string) (runConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return runConfig{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return runConfig{}, err
	}

	rc := runConfig{Seed: 1}
	if v, ok := asString(raw["params"]); ok {
		rc.ParamsPath = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		rc.Seed = v
	}
	if v, ok := asInt(raw["mcs"]); ok {
		rc.Steps = v
	}
	if v, ok := asInt(raw["state_output_interval"]); ok {
		rc.SampleInterval = v
	}
	if v, ok := asString(raw["adhesion_extension_mechanism"]); ok {
		rc.Extension = v
	}
	if v, ok := asString(raw["adhesion_displacement_selection"]); ok {
		rc.Selection = v
	}
	if v, ok := asBool(raw["adhesion_yielding"]); ok {
		rc.Yielding = &v
	}
	if v, ok := asFloat64(raw["lambda_Act"]); ok {
		rc.LambdaAct = &v
	}
	return rc, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies the flags that were set explicitly on the
// command line on top of rc.
func overrideFromFlags(rc *runConfig, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "params":
			rc.ParamsPath = v.(string)
		case "seed":
			rc.Seed = v.(int64)
		case "mcs":
			rc.Steps = v.(int)
		case "sample-interval":
			rc.SampleInterval = v.(int)
		case "extension":
			rc.Extension = v.(string)
		case "selection":
			rc.Selection = v.(string)
		case "yielding":
			b := v.(bool)
			rc.Yielding = &b
		case "lambda-act":
			f := v.(float64)
			rc.LambdaAct = &f
		}
	}
}

func loadOrDefaultRunConfig(configPath string) (runConfig, error) {
	if configPath == "" {
		return runConfig{Seed: 1}, nil
	}
	rc, err := loadRunConfig(configPath)
	if err != nil {
		return runConfig{}, fmt.Errorf("load config: %w", err)
	}
	return rc, nil
}

// request resolves the parameter file and overrides into a client request.
func (rc runConfig) request() (adhesim.RunRequest, error) {
	params := config.Default()
	if rc.ParamsPath != "" {
		loaded, err := config.Load(rc.ParamsPath)
		if err != nil {
			return adhesim.RunRequest{}, err
		}
		params = loaded
	}
	if rc.Extension != "" {
		params.ExtensionMechanism = rc.Extension
	}
	if rc.Selection != "" {
		params.DisplacementSelect = rc.Selection
	}
	if rc.Yielding != nil {
		params.Yielding = *rc.Yielding
	}
	if rc.LambdaAct != nil {
		params.LambdaAct = *rc.LambdaAct
	}
	if err := params.Validate(); err != nil {
		return adhesim.RunRequest{}, err
	}
	return adhesim.RunRequest{
		Params:         &params,
		Seed:           rc.Seed,
		Steps:          rc.Steps,
		SampleInterval: rc.SampleInterval,
	}, nil
}
