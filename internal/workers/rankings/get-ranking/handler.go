// internal/workers/rankings/get-ranking/handler.go
package getranking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/metrics"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "get-ranking"
)

type Handler struct {
	config *Config
	cache  *repository.RankingCache
	errors *apperrors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, rdb redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		cache:  repository.NewRankingCache(rdb, config.CacheTTL, config.CacheRetention),
		errors: apperrors.NewErrorHandler(log),
		logger: log,
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
	if input.City == "" || input.Category == "" {
		return nil, apperrors.NewInvalidInputError("city and category are required")
	}
	rankingType, err := models.ParseRankingType(input.RankingType)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	output := &Output{
		RankingType: string(rankingType),
		Rankings:    []models.RankedBusiness{},
	}

	entry, err := h.cache.Get(ctx, input.City, input.Category, rankingType)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		output.NeedsRecompute = true
		h.logger.Info("ranking not cached", map[string]interface{}{
			"city":        input.City,
			"category":    input.Category,
			"rankingType": rankingType,
		})
		return output, nil
	}

	output.Version = entry.Version
	output.LastUpdated = entry.LastUpdated.UTC().Format(time.RFC3339)
	output.ExpiresAt = entry.ExpiresAt.UTC().Format(time.RFC3339)
	output.Total = len(entry.Rankings)

	if h.cache.Stale(entry) {
		output.Stale = true
		output.NeedsRecompute = true
		if !input.AllowStale {
			return output, nil
		}
	}

	output.Found = true
	output.Rankings = entry.Rankings
	if input.Limit > 0 && len(output.Rankings) > input.Limit {
		output.Rankings = output.Rankings[:input.Limit]
	}
	return output, nil
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
