package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"adhesim/internal/model"
)

var sampleHeader = []string{"step", "id", "x", "y", "size", "tension", "myosin"}

// RunArtifacts is everything written to a run directory.
type RunArtifacts struct {
	Run     model.RunRecord
	Config  any
	Samples []model.AdhesionSample
}

// WriteRunArtifacts writes run.json, config.json, summary.json, and
// samples.csv under baseDir/<run id> and returns that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	if artifacts.Config != nil {
		if err := writeJSON(filepath.Join(runDir, "config.json"), artifacts.Config); err != nil {
			return "", err
		}
	}
	summary := map[string]any{
		"overall": Summarize(artifacts.Samples),
		"steps":   SummarizeBySteps(artifacts.Samples),
	}
	if err := writeJSON(filepath.Join(runDir, "summary.json"), summary); err != nil {
		return "", err
	}
	if err := WriteSamplesCSV(filepath.Join(runDir, "samples.csv"), artifacts.Samples); err != nil {
		return "", err
	}
	return runDir, nil
}

func WriteSamplesCSV(path string, samples []model.AdhesionSample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(sampleHeader); err != nil {
		return err
	}
	for _, s := range samples {
		if err := writer.Write([]string{
			strconv.Itoa(s.Step),
			strconv.Itoa(int(s.ID)),
			formatFloat(s.Position.X),
			formatFloat(s.Position.Y),
			formatFloat(s.Size),
			formatFloat(s.Tension),
			formatFloat(s.Myosin),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadSamplesCSV(path string) ([]model.AdhesionSample, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.AdhesionSample{}, true, nil
		}
		return nil, false, err
	}
	if len(header) != len(sampleHeader) {
		return nil, false, fmt.Errorf("samples header must have %d columns", len(sampleHeader))
	}

	var samples []model.AdhesionSample
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		sample, err := parseSample(record)
		if err != nil {
			return nil, false, err
		}
		samples = append(samples, sample)
	}
	return samples, true, nil
}

func parseSample(record []string) (model.AdhesionSample, error) {
	var s model.AdhesionSample
	step, err := strconv.Atoi(record[0])
	if err != nil {
		return s, err
	}
	id, err := strconv.Atoi(record[1])
	if err != nil {
		return s, err
	}
	values := make([]float64, 5)
	for i := range values {
		if values[i], err = strconv.ParseFloat(record[i+2], 64); err != nil {
			return s, err
		}
	}
	return model.AdhesionSample{
		ID:       model.ParticleID(id),
		Step:     step,
		Position: model.Position{X: values[0], Y: values[1]},
		Size:     values[2],
		Tension:  values[3],
		Myosin:   values[4],
	}, nil
}

// ExportRunArtifacts copies a run directory written by WriteRunArtifacts to
// outDir. Missing optional files are skipped.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{"run.json", "summary.json", "samples.csv"} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	configPath := filepath.Join(src, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		if err := copyFile(configPath, filepath.Join(dst, "config.json")); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}
	return dst, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
