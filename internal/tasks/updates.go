package tasks

import (
	"fmt"

	"github.com/desertthunder/botanica/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	StartBackup Phase = iota
	ExportJob
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case StartBackup:
		return "start_backup"
	case ExportJob:
		return "export_job"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func startBackupUpdate(total, workers int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartBackup,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Backing up %d jobs with %d workers...", total, workers),
	}
}

func exportCompletedUpdate(step, total int, id models.ID, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportJob,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%s)", step, total, name, id),
	}
}

func exportFailedUpdate(step, total int, id models.ID, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportJob,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, id, err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
