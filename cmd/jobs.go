package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/botanica/internal/formatter"
	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/shared"
	"github.com/desertthunder/botanica/internal/tasks"
	"github.com/urfave/cli/v3"
)

// JobsList fetches the job list, or reads the local snapshot with --cached.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	asJSON := cmd.Bool("json")

	if cmd.Bool("cached") {
		if r.cache == nil {
			return fmt.Errorf("%w: local store is not available", shared.ErrServiceUnavailable)
		}
		jobs, fetchedAt, err := r.cache.List()
		if err != nil {
			return fmt.Errorf("failed to read cached jobs: %w", err)
		}
		if asJSON {
			return r.writeJSON(nonNil(jobs), true)
		}
		if fetchedAt.IsZero() {
			r.writePlain("Cached: never\n")
		} else {
			r.writePlain("Cached: %s\n", fetchedAt.Local().Format("2006-01-02 15:04"))
		}
		return r.writeJobs(jobs)
	}

	if err := r.ctrl.LoadSubcategories(ctx, false); err != nil {
		return r.failed(err)
	}

	jobs := r.ctrl.Snapshot().Jobs
	if asJSON {
		return r.writeJSON(nonNil(jobs), true)
	}
	return r.writeJobs(jobs)
}

// JobsShow loads and prints one job.
func (r *Runner) JobsShow(ctx context.Context, cmd *cli.Command) error {
	id, err := jobID(cmd)
	if err != nil {
		return err
	}

	if err := r.ctrl.LoadSubcategoryDetail(ctx, id); err != nil {
		return r.failed(err)
	}

	job := r.ctrl.Snapshot().Detail
	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	return r.writeJob(*job)
}

// JobsCreate creates a job and prints it with its server-assigned id.
func (r *Runner) JobsCreate(ctx context.Context, cmd *cli.Command) error {
	job := models.Subcategory{
		Name:             strings.TrimSpace(cmd.String("name")),
		ShortDescription: cmd.String("short"),
		LongDescription:  cmd.String("long"),
		IsActive:         cmd.Bool("active"),
	}

	saved, err := r.ctrl.SaveSubcategory(ctx, job, true)
	if err != nil {
		return r.failed(err)
	}

	r.logger.Info("job created", "id", saved.ID)
	r.writePlain("✓ Job created: %s (%s)\n", saved.Name, saved.ID)
	if d := r.ctrl.Snapshot().Detail; d != nil && d.ID == saved.ID {
		return r.writeJob(*d)
	}
	return nil
}

// JobsUpdate loads a job, applies the flags that were given and saves it.
func (r *Runner) JobsUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := jobID(cmd)
	if err != nil {
		return err
	}

	if err := r.ctrl.LoadSubcategoryDetail(ctx, id); err != nil {
		return r.failed(err)
	}
	job := *r.ctrl.Snapshot().Detail

	changed := false
	if cmd.IsSet("name") {
		job.Name = strings.TrimSpace(cmd.String("name"))
		changed = true
	}
	if cmd.IsSet("short") {
		job.ShortDescription = cmd.String("short")
		changed = true
	}
	if cmd.IsSet("long") {
		job.LongDescription = cmd.String("long")
		changed = true
	}
	if cmd.IsSet("active") {
		job.IsActive = cmd.Bool("active")
		changed = true
	}
	if !changed {
		return fmt.Errorf("%w: nothing to update, pass --name, --short, --long or --active", shared.ErrMissingArgument)
	}

	saved, err := r.ctrl.SaveSubcategory(ctx, job, false)
	if err != nil {
		return r.failed(err)
	}

	return r.writePlain("✓ Job updated: %s (%s)\n", saved.Name, saved.ID)
}

// JobsDelete deletes a job, asking first unless --yes is given.
func (r *Runner) JobsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := jobID(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("yes") {
		r.ctrl.SetConfirm(nil)
	} else {
		r.ctrl.SetConfirm(r.confirmDelete)
	}

	if err := r.ctrl.DeleteSubcategory(ctx, id); err != nil {
		return r.failed(err)
	}

	r.logger.Info("job deleted", "id", id)
	return r.writePlain("✓ Job %s deleted\n", id)
}

// JobsExport fetches the job list and writes it in the requested format.
func (r *Runner) JobsExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.ctrl.LoadSubcategories(ctx, false); err != nil {
		return r.failed(err)
	}
	jobs := r.ctrl.Snapshot().Jobs

	output := cmd.String("output")
	if output == "-" {
		data, err := formatter.Export(format, jobs)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	path, err := formatter.WriteExport(format, jobs, output)
	if err != nil {
		return err
	}

	r.logger.Info("jobs exported", "format", format, "count", len(jobs), "path", path)
	return r.writePlain("✓ Exported %d jobs to %s\n", len(jobs), path)
}

// JobsBackup fetches the job list and backs up every job concurrently, printing progress as it goes.
func (r *Runner) JobsBackup(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.ctrl.LoadSubcategories(ctx, false); err != nil {
		return r.failed(err)
	}
	jobs := r.ctrl.Snapshot().Jobs

	ids := make([]models.ID, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.writePlain("%s\n", update.Message)
		}
	}()

	engine := tasks.NewEngine(r.backend, r.logger)
	result, err := engine.Backup(ctx, prog, ids, tasks.BackupOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	})
	close(prog)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("✓ Backed up %d of %d jobs to %s", result.Succeeded, result.Total, result.OutputDirectory)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d jobs failed, see %s", shared.ErrAPIRequest, result.Failed, result.ManifestPath)
	}
	return nil
}

func (r *Runner) writeJobs(jobs []models.Subcategory) error {
	data, err := formatter.ExportToText(jobs)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

func (r *Runner) writeJob(job models.Subcategory) error {
	r.writePlain("ID: %s\n", job.ID)
	r.writePlain("Name: %s\n", job.Name)
	r.writePlain("Active: %t\n", job.IsActive)
	if job.ShortDescription != "" {
		r.writePlain("Summary: %s\n", job.ShortDescription)
	}
	if job.LongDescription != "" {
		return r.writePlainln("%s", job.LongDescription)
	}
	return nil
}

// jobID reads the id argument. Placeholder and blank ids are rejected by the controller.
func jobID(cmd *cli.Command) (models.ID, error) {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return "", fmt.Errorf("%w: job id", shared.ErrMissingArgument)
	}
	return models.ID(id), nil
}

func nonNil(jobs []models.Subcategory) []models.Subcategory {
	if jobs == nil {
		return []models.Subcategory{}
	}
	return jobs
}
