// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltaic-labs/voltaic/internal/config"
	"github.com/voltaic-labs/voltaic/internal/decimate"
	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// csvHeader is the first row of every export file.
var csvHeader = []string{"ts", "device_id", "sensor", "value", "anomaly", "quality"}

// ErrQueueFull is returned by Submit when all workers are busy and the
// backlog is at capacity.
var ErrQueueFull = errors.New("export queue full")

// ReadingSource provides the rows an export job extracts. Satisfied by
// *database.DB.
type ReadingSource interface {
	QueryRange(ctx context.Context, deviceID, sensor string, from, to time.Time, limit int) (decimate.Series, error)
	StreamRange(ctx context.Context, deviceID, sensor string, from, to time.Time, maxRows int, fn func(*models.Reading) error) (int, error)
}

// Runner owns the export worker pool. Jobs are accepted via Submit and
// processed by Serve, which is designed to run under suture supervision.
type Runner struct {
	store  *JobStore
	source ReadingSource
	cfg    config.ExportConfig
	queue  chan uuid.UUID
}

// NewRunner creates a runner over the given store and reading source.
func NewRunner(store *JobStore, source ReadingSource, cfg config.ExportConfig) (*Runner, error) {
	if store == nil {
		return nil, errors.New("runner requires a job store")
	}
	if source == nil {
		return nil, errors.New("runner requires a reading source")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("invalid worker count %d", cfg.Workers)
	}

	return &Runner{
		store:  store,
		source: source,
		cfg:    cfg,
		queue:  make(chan uuid.UUID, 4*cfg.Workers),
	}, nil
}

// Submit validates a spec, persists a pending job, and queues it for a
// worker. Returns ErrQueueFull when the backlog is at capacity.
func (r *Runner) Submit(spec models.ExportSpec, requestor string) (*models.ExportJob, error) {
	if spec.DeviceID == "" || spec.Sensor == "" {
		return nil, errors.New("export spec requires device_id and sensor")
	}
	if !spec.To.After(spec.From) {
		return nil, errors.New("export spec requires from < to")
	}
	if spec.Points > 0 && !decimate.Method(methodOrDefault(spec.Method)).Valid() {
		return nil, fmt.Errorf("unknown decimation method %q", spec.Method)
	}

	job := &models.ExportJob{
		ID:        uuid.New(),
		Requestor: requestor,
		Spec:      spec,
		State:     models.ExportPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := r.store.Put(job); err != nil {
		return nil, err
	}

	select {
	case r.queue <- job.ID:
	default:
		job.State = models.ExportFailed
		job.Error = ErrQueueFull.Error()
		_ = r.store.Put(job)
		return nil, ErrQueueFull
	}

	logging.Info().
		Str("job_id", job.ID.String()).
		Str("device_id", spec.DeviceID).
		Str("sensor", spec.Sensor).
		Msg("export job submitted")

	return job, nil
}

// Job returns a job record by id.
func (r *Runner) Job(id uuid.UUID) (*models.ExportJob, error) {
	return r.store.Get(id)
}

// Jobs returns all job records, newest first.
func (r *Runner) Jobs() ([]*models.ExportJob, error) {
	return r.store.List()
}

// FilePath returns the on-disk location of a finished export.
func (r *Runner) FilePath(id uuid.UUID) string {
	return filepath.Join(r.cfg.OutDir, id.String()+".csv")
}

// Serve runs the worker pool and the TTL cleanup loop until the context
// is canceled. Returns ctx.Err() so suture treats the stop as normal.
func (r *Runner) Serve(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.OutDir, 0750); err != nil {
		return fmt.Errorf("create export output directory: %w", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.worker(ctx)
		}()
	}

	// Recovery runs after the workers so its blocking sends drain.
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.recoverJobs(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.cleanupLoop(ctx)
	}()

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// recoverJobs requeues jobs the previous process left non-terminal.
// Interrupted running jobs restart from scratch; the tmp-file write
// never leaves a partial .csv behind, so a rerun is safe.
func (r *Runner) recoverJobs(ctx context.Context) {
	jobs, err := r.store.List()
	if err != nil {
		logging.Warn().Err(err).Msg("export job recovery scan failed")
		return
	}

	requeued := 0
	for _, job := range jobs {
		if job.State != models.ExportPending && job.State != models.ExportRunning {
			continue
		}
		if job.State == models.ExportRunning {
			job.State = models.ExportPending
			job.StartedAt = nil
			if err := r.store.Put(job); err != nil {
				logging.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to reset interrupted export job")
				continue
			}
		}
		select {
		case r.queue <- job.ID:
			requeued++
		case <-ctx.Done():
			return
		}
	}

	if requeued > 0 {
		logging.Info().Int("requeued", requeued).Msg("recovered export jobs from previous run")
	}
}

func (r *Runner) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-r.queue:
			r.runJob(ctx, id)
		}
	}
}

// runJob executes one export: stream rows into a temp file, rename into
// place, record the terminal state. A crash mid-export leaves only a
// .tmp file, never a partial .csv.
func (r *Runner) runJob(ctx context.Context, id uuid.UUID) {
	job, err := r.store.Get(id)
	if err != nil {
		logging.Warn().Err(err).Str("job_id", id.String()).Msg("queued export job missing from store")
		return
	}

	start := time.Now()
	now := start.UTC()
	job.State = models.ExportRunning
	job.StartedAt = &now
	if err := r.store.Put(job); err != nil {
		logging.Error().Err(err).Str("job_id", id.String()).Msg("failed to mark export running")
	}

	rows, size, err := r.writeFile(ctx, job)
	done := time.Now().UTC()
	job.DoneAt = &done
	job.Rows = rows
	job.SizeBytes = size

	if err != nil {
		job.State = models.ExportFailed
		job.Error = err.Error()
		metrics.RecordExportJob("failed", 0, time.Since(start))
		logging.Error().Err(err).Str("job_id", id.String()).Msg("export job failed")
	} else {
		job.State = models.ExportDone
		metrics.RecordExportJob("done", rows, time.Since(start))
		logging.Info().
			Str("job_id", id.String()).
			Int("rows", rows).
			Int("size_bytes", size).
			Dur("elapsed", time.Since(start)).
			Msg("export job completed")
	}

	if err := r.store.Put(job); err != nil {
		logging.Error().Err(err).Str("job_id", id.String()).Msg("failed to persist export job state")
	}
}

// WriteCSV encodes an export directly to dst, header row included.
// The synchronous download endpoint and the async job workers share
// this path, including the MaxRows cap on raw extracts.
func (r *Runner) WriteCSV(ctx context.Context, dst io.Writer, spec models.ExportSpec) (int, error) {
	w := csv.NewWriter(dst)
	if err := w.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	var (
		rows int
		err  error
	)
	if spec.Points > 0 {
		rows, err = r.writeDecimated(ctx, w, spec)
	} else {
		rows, err = r.writeRaw(ctx, w, spec)
	}
	if err != nil {
		return rows, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}

func (r *Runner) writeFile(ctx context.Context, job *models.ExportJob) (rows, size int, err error) {
	final := r.FilePath(job.ID)
	tmp := final + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return 0, 0, fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	rows, err = r.WriteCSV(ctx, f, job.Spec)
	if err != nil {
		return 0, 0, err
	}
	if err = f.Close(); err != nil {
		return 0, 0, fmt.Errorf("close export file: %w", err)
	}
	if err = os.Rename(tmp, final); err != nil {
		return 0, 0, fmt.Errorf("finalize export file: %w", err)
	}

	info, statErr := os.Stat(final)
	if statErr == nil {
		size = int(info.Size())
	}
	return rows, size, nil
}

// writeRaw streams readings straight from storage, capped at MaxRows.
func (r *Runner) writeRaw(ctx context.Context, w *csv.Writer, spec models.ExportSpec) (int, error) {
	return r.source.StreamRange(ctx, spec.DeviceID, spec.Sensor, spec.From, spec.To, r.cfg.MaxRows,
		func(reading *models.Reading) error {
			return w.Write([]string{
				reading.TS.UTC().Format(time.RFC3339Nano),
				reading.DeviceID,
				reading.Sensor,
				formatValue(reading.Value),
				strconv.FormatBool(reading.Anomaly),
				reading.Quality,
			})
		})
}

// writeDecimated loads the range and downsamples before encoding.
// Quality is per-raw-sample and has no meaning after selection, so the
// column is left empty.
func (r *Runner) writeDecimated(ctx context.Context, w *csv.Writer, spec models.ExportSpec) (int, error) {
	series, err := r.source.QueryRange(ctx, spec.DeviceID, spec.Sensor, spec.From, spec.To, r.cfg.MaxRows)
	if err != nil {
		return 0, fmt.Errorf("query range: %w", err)
	}

	reduced, _ := decimate.Downsample(series, decimate.Options{
		Target:            spec.Points,
		Method:            decimate.Method(methodOrDefault(spec.Method)),
		PreserveAnomalies: true,
	})

	for _, p := range reduced {
		row := []string{
			time.UnixMilli(p.TS).UTC().Format(time.RFC3339Nano),
			spec.DeviceID,
			spec.Sensor,
			formatValue(p.Value),
			strconv.FormatBool(p.Anomaly),
			"",
		}
		if err := w.Write(row); err != nil {
			return 0, fmt.Errorf("write row: %w", err)
		}
	}
	return len(reduced), nil
}

// cleanupLoop removes jobs and their files past the TTL.
func (r *Runner) cleanupLoop(ctx context.Context) {
	interval := r.cfg.JobTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanupExpired()
		}
	}
}

func (r *Runner) cleanupExpired() {
	if r.cfg.JobTTL <= 0 {
		return
	}

	cutoff := time.Now().UTC().Add(-r.cfg.JobTTL)
	expired, err := r.store.ExpiredBefore(cutoff)
	if err != nil {
		logging.Warn().Err(err).Msg("export cleanup scan failed")
		return
	}

	for _, id := range expired {
		if err := os.Remove(r.FilePath(id)); err != nil && !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("job_id", id.String()).Msg("failed to remove export file")
			continue
		}
		if err := r.store.Delete(id); err != nil {
			logging.Warn().Err(err).Str("job_id", id.String()).Msg("failed to delete export job")
		}
	}

	if len(expired) > 0 {
		logging.Info().Int("removed", len(expired)).Msg("expired export jobs cleaned up")
	}
}

func methodOrDefault(method string) string {
	if method == "" {
		return string(decimate.MethodLTTB)
	}
	return method
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
