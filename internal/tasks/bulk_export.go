package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/botanica/internal/formatter"
	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultWorkers = 5
	maxWorkers     = 10
)

// ManifestName is the file name of the backup manifest inside the output directory.
const ManifestName = "backup_manifest.json"

// BackupOpts contains configuration for a job backup.
type BackupOpts struct {
	Format     formatter.Format // Per-job file format (default: json)
	OutputDir  string           // Output directory (default: jobs_backup_{epoch})
	NumWorkers int              // Concurrent workers (default: 5, at most 10)
	RateLimit  float64          // Detail requests per second; 0 leaves throttling to the API client
}

// JobBackupResult is the outcome for one job.
type JobBackupResult struct {
	ID      models.ID `json:"id"`
	Name    string    `json:"name,omitempty"`
	Success bool      `json:"success"`
	File    string    `json:"file,omitempty"`
	Error   string    `json:"error,omitempty"`

	index int
}

// BackupResult summarizes a backup run. It is also the manifest written next to the job files.
type BackupResult struct {
	Format          formatter.Format  `json:"format"`
	StartedAt       time.Time         `json:"started_at"`
	Total           int               `json:"total"`
	Succeeded       int               `json:"succeeded"`
	Failed          int               `json:"failed"`
	OutputDirectory string            `json:"output_directory"`
	ManifestPath    string            `json:"-"`
	Results         []JobBackupResult `json:"results"`
}

type backupJob struct {
	index int
	id    models.ID
	file  string
}

// Backup fetches every job in ids and writes one file per job into opts.OutputDir, followed by a manifest.
//
// Workers fetch details concurrently; results are reported in the order of ids.
// A job that cannot be fetched or written is recorded as failed and the run continues.
// An expired session stops the remaining work; the partial result is returned with the error.
func (e *Engine) Backup(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []models.ID,
	opts BackupOpts,
) (*BackupResult, error) {
	if e.fetcher == nil {
		return nil, fmt.Errorf("%w: backend not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if !slices.Contains(formatter.Formats, opts.Format) {
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("jobs_backup_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BackupResult{
		Format:          opts.Format,
		StartedAt:       time.Now().UTC(),
		Total:           len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]JobBackupResult, 0, len(ids)),
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	jobs := make(chan backupJob, len(ids))
	results := make(chan JobBackupResult, len(ids))

	e.logger.Info("starting backup", "jobs", len(ids), "workers", opts.NumWorkers, "dir", opts.OutputDir)
	e.sendProgress(prog, startBackupUpdate(len(ids), opts.NumWorkers))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.backupWorker(runCtx, cancel, &wg, jobs, results, limiter, opts)
	}

	names := uniqueFileNames(ids, opts.Format)
	for i, id := range ids {
		jobs <- backupJob{index: i, id: id, file: names[i]}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.Succeeded++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.ID, res.Name))
		} else {
			result.Failed++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.ID, errors.New(res.Error)))
		}
	}

	slices.SortFunc(result.Results, func(a, b JobBackupResult) int { return a.index - b.index })

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("backup completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("%w: %w", shared.ErrCancelled, err)
	}
	if cause := context.Cause(runCtx); cause != nil {
		return result, cause
	}

	e.logger.Info("backup finished", "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// backupWorker is a worker goroutine that fetches and writes jobs from the jobs channel.
// Jobs left after cancellation are reported as failed so that every id has a result.
func (e *Engine) backupWorker(
	ctx context.Context,
	cancel context.CancelCauseFunc,
	wg *sync.WaitGroup,
	jobs <-chan backupJob,
	results chan<- JobBackupResult,
	limiter *rate.Limiter,
	opts BackupOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := JobBackupResult{ID: job.id, index: job.index}

		if err := ctx.Err(); err != nil {
			res.Error = "skipped: " + context.Cause(ctx).Error()
			results <- res
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				res.Error = "skipped: " + err.Error()
				results <- res
				continue
			}
		}

		sub, err := e.fetch(ctx, job.id)
		if err != nil {
			if errors.Is(err, shared.ErrSessionExpired) {
				cancel(err)
			}
			e.logger.Warn("failed to fetch job", "id", job.id, "error", err)
			res.Error = err.Error()
			results <- res
			continue
		}

		res.Name = sub.Name
		path, err := writeJobFile(opts, *sub, job.file)
		if err != nil {
			res.Error = err.Error()
			results <- res
			continue
		}

		res.File = path
		res.Success = true
		results <- res
	}
}

func (e *Engine) fetch(ctx context.Context, id models.ID) (*models.Subcategory, error) {
	resp, err := e.fetcher.GetSubcategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !resp.Succeeded() {
		return nil, fmt.Errorf("%w: job %s", shared.ErrNotFound, id)
	}

	sub := *resp.Subcategory
	if sub.ID == "" {
		sub.ID = id
	}
	return &sub, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// jobFileName maps an opaque id onto a safe file name.
// An id that had to be rewritten gets a short name-based hash so that ids differing only in unsafe characters stay apart.
func jobFileName(id models.ID, format formatter.Format) string {
	raw := id.String()
	name := unsafeFileChars.ReplaceAllString(raw, "_")
	if name == "" || name == "." || name == ".." {
		name = "job"
	}
	if name != raw {
		name += "_" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw)).String()[:8]
	}
	return fmt.Sprintf("job_%s.%s", name, format)
}

// uniqueFileNames assigns every id its own file name, numbering repeats in input order.
// Names are compared case-insensitively so that the result also holds on case-insensitive filesystems.
func uniqueFileNames(ids []models.ID, format formatter.Format) []string {
	names := make([]string, len(ids))
	taken := make(map[string]bool, len(ids))
	ext := "." + string(format)

	for i, id := range ids {
		name := jobFileName(id, format)
		base := strings.TrimSuffix(name, ext)
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		taken[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

func writeJobFile(opts BackupOpts, sub models.Subcategory, name string) (string, error) {
	jobs := []models.Subcategory{sub}

	var (
		data []byte
		err  error
	)
	switch opts.Format {
	case formatter.FormatMarkdown:
		data, err = formatter.ExportToMarkdown(jobs, sub.Name)
	case formatter.FormatJSON:
		data, err = shared.MarshalJSON(sub, true)
	default:
		data, err = formatter.Export(opts.Format, jobs)
	}
	if err != nil {
		return "", fmt.Errorf("%s export failed: %w", opts.Format, err)
	}

	path := filepath.Join(opts.OutputDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%s write failed: %w", opts.Format, err)
	}
	return path, nil
}

func writeManifest(result *BackupResult, path string) error {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
