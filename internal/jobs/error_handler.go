package jobs

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// ErrorHandler logs job errors and panics. Returning nil keeps River's default
// retry behavior.
type ErrorHandler struct {
	Logger *slog.Logger
}

func (h *ErrorHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}

	return slog.Default()
}

// HandleError is called when a job returns an error.
func (h *ErrorHandler) HandleError(_ context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.logger().Error("job failed",
		"jobKind", job.Kind,
		"jobId", job.ID,
		"attempt", job.Attempt,
		"maxAttempts", job.MaxAttempts,
		"error", err,
	)

	return nil
}

// HandlePanic is called when a job panics.
func (h *ErrorHandler) HandlePanic(_ context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	h.logger().Error("job panicked",
		"jobKind", job.Kind,
		"jobId", job.ID,
		"attempt", job.Attempt,
		"panicValue", panicVal,
		"stackTrace", trace,
	)

	return nil
}
