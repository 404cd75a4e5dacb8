package tasks

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/botanica/internal/models"
	"github.com/desertthunder/botanica/internal/services"
	"github.com/desertthunder/botanica/internal/shared"
)

// Fetcher loads one job by id. [services.Backend] satisfies it.
type Fetcher interface {
	GetSubcategory(ctx context.Context, id models.ID) (*services.SubcategoryResponse, error)
}

// Engine runs bulk job operations against a [Fetcher].
type Engine struct {
	fetcher Fetcher
	logger  *log.Logger
}

var _ Fetcher = (services.Backend)(nil)

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(fetcher Fetcher, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Engine{fetcher: fetcher, logger: shared.WithLogger(logger, "component", "tasks")}
}

// sendProgress sends update on prog without blocking. A nil channel is ignored.
func (e *Engine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
