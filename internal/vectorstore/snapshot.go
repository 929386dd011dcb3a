package vectorstore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// snapshot is the on-disk form of a MemoryStore. The dimension is recorded
// so a snapshot written by one embedder cannot be loaded into a store
// configured for another.
type snapshot struct {
	Dimension int
	Records   []Record
}

// Save writes the store contents to path as a gob snapshot. The write goes
// through a temp file and rename so a crashed save never leaves a truncated
// snapshot behind.
func (s *MemoryStore) Save(path string) error {
	s.mu.RLock()
	snap := snapshot{
		Dimension: s.dim,
		Records:   make([]Record, 0, len(s.records)),
	}
	for _, r := range s.records {
		snap.Records = append(snap.Records, r.Clone())
	}
	s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating snapshot file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming snapshot: %w", err)
	}

	s.logger.Info("saved snapshot",
		zap.String("path", path),
		zap.Int("records", len(snap.Records)),
	)

	return nil
}

// Load replaces the store contents with a snapshot previously written by
// Save. The load is rejected with ErrDimensionMismatch when the snapshot's
// recorded dimension disagrees with the configured or established one.
func (s *MemoryStore) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expected := s.config.VectorSize
	if expected == 0 {
		expected = s.dim
	}
	if expected != 0 && snap.Dimension != 0 && snap.Dimension != expected {
		return fmt.Errorf("%w: snapshot has dimension %d, store expects %d",
			ErrDimensionMismatch, snap.Dimension, expected)
	}

	records := make(map[string]Record, len(snap.Records))
	for _, r := range snap.Records {
		if len(r.Vector) != snap.Dimension {
			return fmt.Errorf("%w: snapshot record %s has dimension %d, snapshot header says %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), snap.Dimension)
		}
		records[r.ID] = r
	}

	s.records = records
	s.dim = snap.Dimension

	s.logger.Info("loaded snapshot",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("dimension", snap.Dimension),
	)

	return nil
}
