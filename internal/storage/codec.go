package storage

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"

	"adhesim/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned returns the version header written by this build.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeInteractions(logs []model.InteractionLog) ([]byte, error) {
	return json.Marshal(logs)
}

func DecodeInteractions(data []byte) ([]model.InteractionLog, error) {
	var logs []model.InteractionLog
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, err
	}
	for _, log := range logs {
		if err := checkVersion(log.VersionedRecord); err != nil {
			return nil, err
		}
	}
	return logs, nil
}

func EncodeSamples(samples []model.AdhesionSample) ([]byte, error) {
	return json.Marshal(samples)
}

func DecodeSamples(data []byte) ([]model.AdhesionSample, error) {
	var samples []model.AdhesionSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func sortRuns(runs []model.RunRecord) {
	slices.SortFunc(runs, func(a, b model.RunRecord) int {
		if c := strings.Compare(a.CreatedAtUTC, b.CreatedAtUTC); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func cloneInteractionLogs(logs []model.InteractionLog) []model.InteractionLog {
	copied := make([]model.InteractionLog, 0, len(logs))
	for _, log := range logs {
		moves := make(map[model.ParticleID]model.Position, len(log.Moves))
		for id, pos := range log.Moves {
			moves[id] = pos
		}
		log.Moves = moves
		log.Removals = append([]model.ParticleID(nil), log.Removals...)
		copied = append(copied, log)
	}
	return copied
}
