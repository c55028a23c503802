package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const scoresBucket = "scores"

// ScoreRecord is one model score observation, keyed by model kind and run
// start time.
type ScoreRecord struct {
	RunID     string    `json:"run_id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Accuracy  float64   `json:"accuracy"`
	Precision float64   `json:"precision"`
	Recall    float64   `json:"recall"`
	F1        float64   `json:"f1_score"`
	TestRows  int       `json:"test_rows"`
}

func putScores(tx *bbolt.Tx, run RunRecord) error {
	b := tx.Bucket([]byte(scoresBucket))
	for _, m := range run.Models {
		record := ScoreRecord{
			RunID:     run.ID,
			Kind:      m.Kind,
			Timestamp: run.StartedAt,
			Accuracy:  m.Accuracy,
			Precision: m.Precision,
			Recall:    m.Recall,
			F1:        m.F1,
			TestRows:  run.TestRows,
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal score record: %w", err)
		}
		if err := b.Put(scoreKey(m.Kind, run.StartedAt, run.ID), data); err != nil {
			return err
		}
	}
	return nil
}

func deleteScores(tx *bbolt.Tx, run RunRecord) error {
	b := tx.Bucket([]byte(scoresBucket))
	for _, m := range run.Models {
		if err := b.Delete(scoreKey(m.Kind, run.StartedAt, run.ID)); err != nil {
			return err
		}
	}
	return nil
}

// GetScores returns the scores of one model kind recorded between start and
// end inclusive, oldest first.
func (s *Store) GetScores(kind string, start, end time.Time) ([]ScoreRecord, error) {
	var scores []ScoreRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(scoresBucket)).Cursor()

		prefix := []byte(kind + "_")
		startKey := []byte(fmt.Sprintf("%s_%019d", kind, start.UnixNano()))
		// The trailing byte sorts after every run id suffix.
		endKey := []byte(fmt.Sprintf("%s_%019d_\xff", kind, end.UnixNano()))

		for k, v := c.Seek(startKey); k != nil && compareKeys(k, endKey) <= 0; k, v = c.Next() {
			if !hasPrefix(k, prefix) {
				break
			}
			var record ScoreRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue // Skip malformed records
			}
			scores = append(scores, record)
		}
		return nil
	})

	return scores, err
}

func scoreKey(kind string, ts time.Time, runID string) []byte {
	return []byte(fmt.Sprintf("%s_%019d_%s", kind, ts.UnixNano(), runID))
}
