// internal/workers/rankings/compute-ranking/handler.go
package computeranking

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/metrics"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/ranking"
	"business-ranking-workers/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "compute-ranking"

	EventRankingUpdated = "ranking.updated"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config     *Config
	businesses *repository.BusinessStore
	reviews    *repository.ReviewStore
	cache      *repository.RankingCache
	index      *repository.BusinessIndex
	snsClient  SNSService
	engine     *ranking.Engine
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

// NewHandler builds the ranking run. index and snsClient are optional.
func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, index *repository.BusinessIndex, snsClient SNSService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		businesses: repository.NewBusinessStore(db),
		reviews:    repository.NewReviewStore(db),
		cache:      repository.NewRankingCache(rdb, config.CacheTTL, config.CacheRetention),
		index:      index,
		snsClient:  snsClient,
		engine:     ranking.NewEngine(config.Ranking),
		errors:     apperrors.NewErrorHandler(log),
		logger:     log,
		now:        func() time.Time { return time.Now().UTC() },
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
	types, err := parseRankingTypes(input.RankingTypes)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	cohort, err := h.loadCohort(ctx, input.City, input.Category)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ranking.RunSummary, 0, len(types))
	for _, t := range types {
		summary, err := h.rank(ctx, cohort, t)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	now := h.now()
	output := &Output{
		RunID:      uuid.New().String(),
		City:       input.City,
		Category:   input.Category,
		CohortSize: len(cohort),
		Summaries:  make([]RankingSummary, 0, len(summaries)),
		ComputedAt: now.Format(time.RFC3339),
	}

	// Postgres first: a failure here retries the job before any leaderboard
	// has been replaced.
	var overall []models.RankedBusiness
	for _, s := range summaries {
		if s.RankingType == models.RankingOverall {
			overall = s.Rankings
			if err := h.businesses.UpdateRankings(ctx, input.City, input.Category, overall, now); err != nil {
				return nil, err
			}
		}
	}

	versions := make(map[string]int64, len(summaries))
	for _, s := range summaries {
		entry, err := h.cache.Put(ctx, input.City, input.Category, s.RankingType, s.Rankings)
		if err != nil {
			return nil, err
		}
		versions[string(s.RankingType)] = entry.Version
		output.Summaries = append(output.Summaries, summaryOf(s, entry.Version))
		h.record(s)
	}

	if h.index != nil && overall != nil {
		if err := h.index.BulkUpdateRankings(ctx, overall, now); err != nil {
			h.logger.Warn("search index ranking update failed", map[string]interface{}{
				"error": err,
				"index": h.index.Index(),
			})
		} else {
			output.IndexUpdated = true
		}
	}

	output.EventPublished = h.publish(ctx, &RankingUpdatedEvent{
		EventType:  EventRankingUpdated,
		RunID:      output.RunID,
		City:       input.City,
		Category:   input.Category,
		Versions:   versions,
		ComputedAt: output.ComputedAt,
	})

	h.logger.Info("rankings computed", map[string]interface{}{
		"runId":      output.RunID,
		"city":       input.City,
		"category":   input.Category,
		"cohortSize": output.CohortSize,
		"types":      len(output.Summaries),
	})

	return output, nil
}

func (h *Handler) loadCohort(ctx context.Context, city, category string) ([]ranking.Input, error) {
	businesses, err := h.businesses.ListCohort(ctx, city, category)
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

	cohort := make([]ranking.Input, len(businesses))
	for i := range businesses {
		cohort[i] = ranking.Input{Business: businesses[i], Reviews: reviews[businesses[i].ID]}
	}
	return cohort, nil
}

func (h *Handler) rank(ctx context.Context, cohort []ranking.Input, t models.RankingType) (*ranking.RunSummary, error) {
	if aspect, ok := t.Aspect(); ok {
		return h.engine.RankAspect(cohort, aspect), nil
	}
	summary, err := h.engine.RankOverall(ctx, cohort)
	if err != nil {
		return nil, apperrors.NewTimeoutError("ranking", err)
	}
	return summary, nil
}

func (h *Handler) record(s *ranking.RunSummary) {
	rt := string(s.RankingType)
	metrics.RankingBusinesses.WithLabelValues(rt, "calculated").Add(float64(s.Calculated))
	metrics.RankingBusinesses.WithLabelValues(rt, "skipped").Add(float64(s.Skipped))
	metrics.RankingBusinesses.WithLabelValues(rt, "failed").Add(float64(s.Failed))
	metrics.RankingOutliers.Add(float64(s.Outliers))

	for _, e := range s.Errors {
		h.logger.Warn("business not ranked", map[string]interface{}{
			"rankingType": rt,
			"businessId":  e.BusinessID,
			"error":       e.Error,
		})
	}
}

// publish announces the run. Delivery is best effort because the cache is
// already replaced.
func (h *Handler) publish(ctx context.Context, event *RankingUpdatedEvent) bool {
	if !h.config.EventsEnabled || h.snsClient == nil {
		return false
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode ranking event", map[string]interface{}{"error": err})
		return false
	}

	_, err = h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(event.EventType)},
		},
	})
	if err != nil {
		h.logger.Warn("ranking event not published", map[string]interface{}{
			"error": apperrors.NewEventPublishFailedError(h.config.TopicARN, err),
		})
		return false
	}
	return true
}

func parseRankingTypes(raw []string) ([]models.RankingType, error) {
	if len(raw) == 0 {
		return models.RankingTypes, nil
	}
	seen := make(map[models.RankingType]bool, len(raw))
	out := make([]models.RankingType, 0, len(raw))
	for _, r := range raw {
		t, err := models.ParseRankingType(r)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

func summaryOf(s *ranking.RunSummary, version int64) RankingSummary {
	out := RankingSummary{
		RankingType: string(s.RankingType),
		Version:     version,
		Calculated:  s.Calculated,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		Outliers:    s.Outliers,
		Errors:      s.Errors,
		Adjustments: s.Adjustments,
		Rankings:    s.Rankings,
	}
	if len(s.Rankings) > 0 {
		out.TopBusinessID = s.Rankings[0].BusinessID
	}
	return out
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
