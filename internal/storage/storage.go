// Package storage keeps the history of evaluation runs in a BoltDB file.
//
// Only scores are stored: a RunRecord holds the settings and per-model
// results of one run, and every model result is also indexed by model kind
// for trend queries. Fitted models are never persisted.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fraud-eval/internal/eval"

	"go.etcd.io/bbolt"
)

const (
	dbFile = "fraud-eval.db"

	runsBucket   = "runs"    // time ordered run records
	runIDsBucket = "run_ids" // run id -> key in runsBucket
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the stored summary of one evaluation run.
type RunRecord struct {
	ID           string        `json:"id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	DataPath     string        `json:"data_path"`
	Rows         int           `json:"rows"`
	Frauds       int           `json:"frauds"`
	TrainRows    int           `json:"train_rows"`
	TestRows     int           `json:"test_rows"`
	TestFraction float64       `json:"test_fraction"`
	Seed         int64         `json:"seed"`
	Stratified   bool          `json:"stratified"`
	ScalerFitOn  string        `json:"scaler_fit_on"`
	Models       []ModelRecord `json:"models"`
}

// ModelRecord is the score of one model within a run.
type ModelRecord struct {
	Kind        string               `json:"kind"`
	Title       string               `json:"title"`
	Accuracy    float64              `json:"accuracy"`
	Precision   float64              `json:"precision"`
	Recall      float64              `json:"recall"`
	F1          float64              `json:"f1_score"`
	Confusion   eval.ConfusionMatrix `json:"confusion_matrix"`
	FitDuration time.Duration        `json:"fit_duration"`
}

// Store provides persistent storage for run history using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the history database in dir.
func New(dir string) (*Store, error) {
	dbPath := filepath.Join(dir, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{runsBucket, runIDsBucket, scoresBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// SaveRun stores a run and indexes its model scores. Saving a run id again
// replaces the earlier record.
func (s *Store) SaveRun(run RunRecord) error {
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		runs := tx.Bucket([]byte(runsBucket))
		ids := tx.Bucket([]byte(runIDsBucket))

		if old := ids.Get([]byte(run.ID)); old != nil {
			if err := deleteRun(tx, old); err != nil {
				return err
			}
		}

		key := runKey(run.StartedAt, run.ID)
		if err := runs.Put(key, data); err != nil {
			return err
		}
		if err := ids.Put([]byte(run.ID), key); err != nil {
			return err
		}
		return putScores(tx, run)
	})
}

func deleteRun(tx *bbolt.Tx, key []byte) error {
	runs := tx.Bucket([]byte(runsBucket))
	var old RunRecord
	if data := runs.Get(key); data != nil && json.Unmarshal(data, &old) == nil {
		if err := deleteScores(tx, old); err != nil {
			return err
		}
	}
	return runs.Delete(key)
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(id string) (RunRecord, error) {
	var run RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		key := tx.Bucket([]byte(runIDsBucket)).Get([]byte(id))
		if key == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		data := tx.Bucket([]byte(runsBucket)).Get(key)
		if data == nil {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return json.Unmarshal(data, &run)
	})
	return run, err
}

// ListRuns returns up to limit runs, newest first. A limit of 0 or less
// returns every run.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(runs) >= limit {
				break
			}
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				continue // Skip malformed records
			}
			runs = append(runs, run)
		}
		return nil
	})
	return runs, err
}

// runKey orders runs by start time; the id keeps keys unique.
func runKey(ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%019d_%s", ts.UnixNano(), id))
}

func hasPrefix(data, prefix []byte) bool {
	return bytes.HasPrefix(data, prefix)
}

func compareKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}
