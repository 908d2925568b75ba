package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const deploymentsBucket = "deployments"

// ErrNotFound is returned by Get for unknown ids
var ErrNotFound = errors.New("deployment not found")

// Deployment is one recorded deploy run
type Deployment struct {
	ID             string    `json:"id"`
	Endpoint       string    `json:"endpoint"`
	Model          string    `json:"model"`
	EndpointConfig string    `json:"endpoint_config"`
	ModelARN       string    `json:"model_arn,omitempty"`
	EndpointARN    string    `json:"endpoint_arn,omitempty"`
	Outcome        string    `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

// Duration returns how long the run took
func (d Deployment) Duration() time.Duration {
	return d.EndedAt.Sub(d.StartedAt)
}

// Store keeps deployment records in a bbolt file
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the history file at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(deploymentsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the history file
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a deployment, assigning an id when it has none. Ids are
// time ordered so the bucket iterates oldest first.
func (s *Store) Record(d Deployment) (Deployment, error) {
	if d.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return d, fmt.Errorf("failed to generate deployment id: %w", err)
		}
		d.ID = id.String()
	}

	data, err := json.Marshal(d)
	if err != nil {
		return d, fmt.Errorf("failed to encode deployment: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(deploymentsBucket)).Put([]byte(d.ID), data)
	})
	if err != nil {
		return d, fmt.Errorf("failed to record deployment: %w", err)
	}
	return d, nil
}

// List returns up to limit deployments, newest first. limit <= 0 means all.
func (s *Store) List(limit int) ([]Deployment, error) {
	var out []Deployment

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(deploymentsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var d Deployment
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("failed to decode deployment %s: %w", k, err)
			}
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single deployment by id
func (s *Store) Get(id string) (Deployment, error) {
	var d Deployment

	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(deploymentsBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &d)
	})
	return d, err
}
