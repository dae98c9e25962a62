// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

// Package export runs asynchronous CSV export jobs. Job state lives in
// a BadgerDB store so submitted jobs survive server restarts; the rows
// themselves stream straight from DuckDB into files under the export
// output directory.
package export

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/models"
)

// jobKeyPrefix namespaces job records inside the Badger keyspace.
const jobKeyPrefix = "job:"

// ErrJobNotFound is returned when a job id does not exist in the store.
var ErrJobNotFound = errors.New("export job not found")

// JobStore persists export job records in BadgerDB.
type JobStore struct {
	db *badger.DB
}

// OpenStore opens (or creates) a Badger-backed job store at path.
func OpenStore(path string) (*JobStore, error) {
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("create job store directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	return &JobStore{db: db}, nil
}

// OpenInMemoryStore opens a store that keeps jobs only in memory.
// Used in tests.
func OpenInMemoryStore() (*JobStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory BadgerDB: %w", err)
	}

	return &JobStore{db: db}, nil
}

// Close closes the underlying Badger database.
func (s *JobStore) Close() error {
	return s.db.Close()
}

// Put creates or replaces a job record.
func (s *JobStore) Put(job *models.ExportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(jobKeyPrefix + job.ID.String())
		return txn.Set(key, data)
	})
}

// Get retrieves a job by id.
func (s *JobStore) Get(id uuid.UUID) (*models.ExportJob, error) {
	var job models.ExportJob

	err := s.db.View(func(txn *badger.Txn) error {
		key := []byte(jobKeyPrefix + id.String())
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &job)
		})
	})
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// List returns all jobs, newest first.
func (s *JobStore) List() ([]*models.ExportJob, error) {
	var jobs []*models.ExportJob

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			var job models.ExportJob
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			})
			if err != nil {
				continue
			}
			jobs = append(jobs, &job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs, nil
}

// Delete removes a job record. Deleting a missing job is a no-op.
func (s *JobStore) Delete(id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(jobKeyPrefix + id.String())
		err := txn.Delete(key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete job: %w", err)
		}
		return nil
	})
}

// ExpiredBefore returns the ids of jobs created before cutoff,
// whatever their state. A pending or running job older than the TTL is
// an orphan from a previous process that recovery never picked up.
func (s *JobStore) ExpiredBefore(cutoff time.Time) ([]uuid.UUID, error) {
	jobs, err := s.List()
	if err != nil {
		return nil, err
	}

	var expired []uuid.UUID
	for _, job := range jobs {
		if job.CreatedAt.Before(cutoff) {
			expired = append(expired, job.ID)
		}
	}
	return expired, nil
}

// Count returns the total number of stored jobs.
func (s *JobStore) Count() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})

	return count, err
}
