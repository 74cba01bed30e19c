// internal/workers/analytics/recompute-confidence/handler.go
package recomputeconfidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/metrics"
	"business-ranking-workers/internal/confidence"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "recompute-confidence"
)

type Handler struct {
	config     *Config
	businesses *repository.BusinessStore
	reviews    *repository.ReviewStore
	scorer     *confidence.Scorer
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		businesses: repository.NewBusinessStore(db),
		reviews:    repository.NewReviewStore(db),
		scorer:     confidence.NewScorer(config.Confidence),
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	businesses, err := h.selectBusinesses(ctx, input)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(businesses))
	for i := range businesses {
		ids[i] = businesses[i].ID
	}
	reviews, err := h.reviews.ListByBusinesses(ctx, ids)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Reports:    make([]models.ConfidenceReport, 0, len(businesses)),
		ComputedAt: time.Now().UTC().Format(time.RFC3339),
	}

	for _, id := range ids {
		report := h.scorer.Score(id, reviews[id])
		output.Processed++

		if err := h.businesses.UpdateConfidence(ctx, id, report.Confidence); err != nil {
			std := apperrors.Normalize(err)
			if errors.Is(err, repository.ErrBusinessNotFound) {
				std = apperrors.NewBusinessNotFoundError(id)
			}
			output.Failed++
			output.Errors = append(output.Errors, BusinessError{
				BusinessID: id,
				Code:       string(std.Code),
				Message:    err.Error(),
			})
			h.logger.Warn("confidence update failed", map[string]interface{}{
				"businessId": id,
				"error":      err,
			})
			continue
		}

		output.Updated++
		output.Reports = append(output.Reports, report)
		metrics.ConfidenceScore.Observe(float64(report.Confidence))
	}

	h.logger.Info("confidence recomputed", map[string]interface{}{
		"businessId": input.BusinessID,
		"city":       input.City,
		"category":   input.Category,
		"processed":  output.Processed,
		"updated":    output.Updated,
		"failed":     output.Failed,
	})

	return output, nil
}

func (h *Handler) selectBusinesses(ctx context.Context, input *Input) ([]models.Business, error) {
	if input.BusinessID != "" {
		b, err := h.businesses.FindByID(ctx, input.BusinessID)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, apperrors.NewBusinessNotFoundError(input.BusinessID)
		}
		return []models.Business{*b}, nil
	}

	if input.City == "" || input.Category == "" {
		return nil, apperrors.NewInvalidInputError("businessId or city and category are required")
	}
	return h.businesses.ListCohort(ctx, input.City, input.Category)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
