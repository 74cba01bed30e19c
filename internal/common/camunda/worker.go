// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"time"

	"business-ranking-workers/internal/common/config"
	"business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/metrics"
	"business-ranking-workers/internal/common/observability"
	"business-ranking-workers/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is implemented by every task package's Handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// WorkerOptions are the shared collaborators wrapped around every handler.
type WorkerOptions struct {
	Validator     *validation.Validator
	Errors        *errors.ErrorHandler
	Observability *observability.Observability
	Logger        logger.Logger
}

type CamundaWorker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. Disabled workers return nil.
func NewWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, opts WorkerOptions) *CamundaWorker {
	log := opts.Logger.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handler, opts)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})

	return &CamundaWorker{worker: jobWorker, logger: log, taskType: taskType}
}

// Instrument validates job variables against the registry schema, then
// calls handler while tracking active jobs and duration.
func Instrument(taskType string, handler JobHandler, opts WorkerOptions) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer func() {
			elapsed := time.Since(start)
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			opts.Observability.RecordJobDuration(context.Background(), taskType, elapsed)
		}()

		if opts.Validator != nil {
			result, err := opts.Validator.Validate(taskType, job.Variables)
			if err == nil && !result.Valid {
				err = errors.NewInvalidInputError(result.Summary())
			}
			if err != nil {
				stdErr := errors.Normalize(err)
				if stdErr.Code == "INTERNAL_ERROR" {
					stdErr = errors.NewInvalidInputError(err.Error())
				}
				metrics.WorkerJobsFailed.WithLabelValues(taskType, string(stdErr.Code)).Inc()
				opts.Observability.RecordJobProcessed(context.Background(), taskType, "invalid")
				if opts.Errors != nil {
					opts.Errors.HandleJobError(context.Background(), client, job, stdErr)
				}
				return
			}
		}

		handler.Handle(client, job)
		opts.Observability.RecordJobProcessed(context.Background(), taskType, "handled")
	}
}

func (w *CamundaWorker) Close() {
	if w == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
