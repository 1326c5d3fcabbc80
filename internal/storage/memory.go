package storage

import (
	"context"
	"sync"

	"adhesim/internal/model"
)

type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	runs         map[string]model.RunRecord
	interactions map[string][]model.InteractionLog
	samples      map[string][]model.AdhesionSample
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.interactions = make(map[string][]model.InteractionLog)
	s.samples = make(map[string][]model.AdhesionSample)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	return run, ok, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (s *MemoryStore) SaveInteractions(_ context.Context, runID string, logs []model.InteractionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interactions[runID] = cloneInteractionLogs(logs)
	return nil
}

func (s *MemoryStore) GetInteractions(_ context.Context, runID string) ([]model.InteractionLog, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs, ok := s.interactions[runID]
	if !ok {
		return nil, false, nil
	}
	return cloneInteractionLogs(logs), true, nil
}

func (s *MemoryStore) SaveSamples(_ context.Context, runID string, samples []model.AdhesionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.AdhesionSample, len(samples))
	copy(copied, samples)
	s.samples[runID] = copied
	return nil
}

func (s *MemoryStore) GetSamples(_ context.Context, runID string) ([]model.AdhesionSample, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples, ok := s.samples[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.AdhesionSample, len(samples))
	copy(copied, samples)
	return copied, true, nil
}
