// internal/workers/claims/decide-claim/handler.go
package decideclaim

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
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "decide-business-claim"
)

type Handler struct {
	config *Config
	claims *repository.ClaimStore
	errors *apperrors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		claims: repository.NewClaimStore(db),
		errors: apperrors.NewErrorHandler(log),
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
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
	if input.AdminID == "" {
		return nil, apperrors.NewInvalidInputError("adminId is required")
	}

	var status models.ClaimStatus
	switch input.Decision {
	case DecisionApprove:
		status = models.ClaimApproved
	case DecisionReject:
		status = models.ClaimRejected
	case DecisionNeedsInfo:
		status = models.ClaimNeedsInfo
	default:
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown decision %q", input.Decision))
	}

	claim, err := h.claims.GetClaim(ctx, input.ClaimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, apperrors.NewClaimNotFoundError(input.ClaimID)
	}
	if !claim.Status.Open() {
		return nil, apperrors.NewInvalidClaimStateError(claim.ID, string(claim.Status))
	}

	now := h.now()
	admin := input.AdminID

	if status == models.ClaimApproved {
		err = h.claims.ApproveClaim(ctx, claim, repository.Approval{
			ReviewedBy: &admin,
			Notes:      input.Notes,
			At:         now,
		})
	} else {
		err = h.claims.UpdateStatus(ctx, claim.ID, status, &admin, input.Notes, now)
	}
	switch {
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return nil, apperrors.NewAlreadyClaimedError(claim.BusinessID)
	case errors.Is(err, repository.ErrClaimNotOpen):
		return nil, apperrors.NewInvalidClaimStateError(claim.ID, "closed")
	case err != nil:
		return nil, err
	}

	metrics.ClaimOutcomes.WithLabelValues("admin_" + string(status)).Inc()

	h.logger.Info("claim decided", map[string]interface{}{
		"claimId":    claim.ID,
		"businessId": claim.BusinessID,
		"decision":   input.Decision,
		"adminId":    admin,
	})

	return &Output{
		ClaimID:    claim.ID,
		BusinessID: claim.BusinessID,
		Status:     string(status),
		DecidedBy:  admin,
		DecidedAt:  now.Format(time.RFC3339),
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
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey": job.Key,
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
