// internal/workers/reviews/import-reviews/handler.go
package importreviews

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/metrics"
	"business-ranking-workers/internal/dedup"
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "import-reviews"
)

type Handler struct {
	config     *Config
	businesses *repository.BusinessStore
	reviews    *repository.ReviewStore
	search     CandidateSearcher
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

// NewHandler wires the import against Postgres. index may be nil, in which
// case fuzzy attribution scans the business table.
func NewHandler(config *Config, db *sql.DB, index *repository.BusinessIndex, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	h := &Handler{
		config:     config,
		businesses: repository.NewBusinessStore(db),
		reviews:    repository.NewReviewStore(db),
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
	}
	if index != nil {
		h.search = index
	}
	return h
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
	dir := &batchDirectory{BusinessStore: h.businesses, search: h.search, logger: h.logger}
	attributor := matching.NewAttributor(dir, h.config.Matching)
	engine := dedup.NewEngine(h.reviews, h.config.ContentThreshold)
	if input.SkipDuplicates != nil && !*input.SkipDuplicates {
		engine.IDOnly()
	}
	now := h.now()

	output := &Output{
		Total:    len(input.Reviews),
		Imported: []ImportedReview{},
	}
	var retryable error

	fail := func(i int, item *ReviewInput, err error) {
		std := apperrors.Normalize(err)
		if errors.Is(err, matching.ErrNoBusinessMatch) {
			std = apperrors.NewBusinessNotFoundError(item.Business.Name)
		}
		if std.Retryable {
			retryable = std
		}
		output.Failed++
		output.Errors = append(output.Errors, ItemError{
			Index:    i,
			ReviewID: item.ReviewID,
			Code:     string(std.Code),
			Message:  err.Error(),
		})
		metrics.ReviewsImported.WithLabelValues("failed").Inc()
	}
	duplicate := func() {
		output.Duplicates++
		metrics.ReviewsImported.WithLabelValues("duplicate").Inc()
	}

	for i := range input.Reviews {
		item := &input.Reviews[i]

		review, err := reviewOf(item, now)
		if err != nil {
			fail(i, item, err)
			continue
		}

		attribution, err := attributor.Attribute(ctx, item.Business)
		if err != nil {
			fail(i, item, err)
			continue
		}
		review.BusinessID = attribution.Business.ID

		verdict, err := engine.Check(ctx, *review)
		if err != nil {
			fail(i, item, err)
			continue
		}
		if verdict.Duplicate() {
			h.logger.Debug("duplicate review skipped", map[string]interface{}{
				"reviewId":   review.ReviewID,
				"businessId": review.BusinessID,
				"verdict":    string(verdict),
			})
			duplicate()
			continue
		}

		review.ID = uuid.New().String()
		err = h.reviews.Insert(ctx, review)
		if errors.Is(err, repository.ErrDuplicateReview) {
			engine.Remember(*review)
			duplicate()
			continue
		}
		if err != nil {
			fail(i, item, err)
			continue
		}

		engine.Remember(*review)
		output.Successful++
		output.Imported = append(output.Imported, ImportedReview{
			ReviewID:   review.ReviewID,
			BusinessID: review.BusinessID,
			Strategy:   string(attribution.Strategy),
			Confidence: attribution.Confidence,
		})
		metrics.ReviewsImported.WithLabelValues("imported").Inc()
	}

	// Nothing got through and infrastructure was at fault: let the broker retry
	// the whole batch. Reviews stored meanwhile come back as duplicates.
	if output.Successful == 0 && output.Duplicates == 0 && retryable != nil {
		return nil, retryable
	}

	h.logger.Info("reviews imported", map[string]interface{}{
		"total":      output.Total,
		"successful": output.Successful,
		"failed":     output.Failed,
		"duplicates": output.Duplicates,
	})

	return output, nil
}

// reviewOf validates item and converts it into an unattributed review.
func reviewOf(item *ReviewInput, now time.Time) (*models.Review, error) {
	if strings.TrimSpace(item.ReviewID) == "" {
		return nil, apperrors.NewInvalidInputError("reviewId is required")
	}
	if item.Rating < 1 || item.Rating > 5 {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("rating %d out of range 1-5", item.Rating))
	}

	source := models.ReviewSource(item.Source)
	if source == "" {
		source = models.SourceManual
	}
	if !source.Valid() {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown source %q", item.Source))
	}
	if item.Sentiment != nil && !item.Sentiment.Classification.Valid() {
		return nil, apperrors.NewInvalidInputError(
			fmt.Sprintf("unknown sentiment classification %q", item.Sentiment.Classification))
	}

	createdAt := now
	if item.CreatedAt != nil && !item.CreatedAt.IsZero() {
		createdAt = item.CreatedAt.UTC()
	}

	return &models.Review{
		ReviewID:  item.ReviewID,
		Rating:    item.Rating,
		Comment:   strings.TrimSpace(item.Comment),
		UserName:  strings.TrimSpace(item.UserName),
		Source:    source,
		Verified:  item.Verified,
		CreatedAt: createdAt,
		Sentiment: item.Sentiment,
		Mentions:  item.Mentions,
	}, nil
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
