package dispatch

import (
	"context"

	"github.com/vk/deskshell/internal/ctxlog"
)

// worker is the core processing loop for a single concurrent worker.
func (d *Dispatcher) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range d.jobs {
		jobLogger := logger.With("workerID", workerID, "request_id", j.req.ID, "command", j.req.Command, "caller", j.req.Caller)
		resp := Response{ID: j.req.ID}

		// A caller that gave up while queued does not get its handler run.
		if err := j.ctx.Err(); err != nil {
			jobLogger.Debug("Skipping invocation, caller context is done.", "error", err)
			resp.Err = err
			j.reply(resp)
			continue
		}

		jobLogger.Debug("Worker picked up invocation.")
		value, err := d.inv.Invoke(ctxlog.WithLogger(j.ctx, jobLogger), j.req.Command, j.req.Args)
		if err != nil {
			jobLogger.Debug("Invocation failed.", "error", err)
			resp.Err = err
		} else {
			resp.Value = value
		}
		j.reply(resp)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
