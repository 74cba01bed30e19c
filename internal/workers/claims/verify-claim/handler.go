// internal/workers/claims/verify-claim/handler.go
package verifyclaim

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
	"business-ranking-workers/internal/matching"
	"business-ranking-workers/internal/models"
	"business-ranking-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "verify-business-claim"
)

const reasonAlreadyClaimed = "business already claimed"

type Handler struct {
	config     *Config
	claims     *repository.ClaimStore
	businesses *repository.BusinessStore
	matcher    *matching.Matcher
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		claims:     repository.NewClaimStore(db),
		businesses: repository.NewBusinessStore(db),
		matcher:    matching.NewMatcher(config.Matching),
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

	business, err := h.businesses.FindByID(ctx, claim.BusinessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, apperrors.NewBusinessNotFoundError(claim.BusinessID)
	}

	now := h.now()
	result := h.matcher.MatchClaim(matching.IdentityOf(business), input.Candidates)
	verification := result.Verification(now)

	output := &Output{
		ClaimID:              claim.ID,
		BusinessID:           business.ID,
		MatchConfidence:      result.Confidence,
		RequiresManualReview: result.RequiresManualReview,
		VerificationDetails:  result.Details,
		Reason:               result.Reason,
		VerifiedAt:           now.Format(time.RFC3339),
	}

	switch result.Outcome {
	case matching.OutcomeAutoVerified:
		err = h.claims.ApproveClaim(ctx, claim, repository.Approval{
			Verification: verification,
			Method:       models.VerificationGMBOAuth,
			At:           now,
		})
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			// The business was claimed by someone else in the meantime.
			verification.FailureReason = reasonAlreadyClaimed
			if err := h.claims.RejectWithVerification(ctx, claim.ID, verification, reasonAlreadyClaimed, now); err != nil {
				return nil, h.mapError(claim, err)
			}
			output.Outcome = OutcomeRejected
			output.Reason = reasonAlreadyClaimed
		case err != nil:
			return nil, h.mapError(claim, err)
		default:
			output.Outcome = OutcomeApproved
		}

	case matching.OutcomeManualReview:
		if err := h.claims.AttachVerification(ctx, claim.ID, verification, now); err != nil {
			return nil, h.mapError(claim, err)
		}
		output.Outcome = OutcomeNeedsManualReview

	default:
		if err := h.claims.AttachVerification(ctx, claim.ID, verification, now); err != nil {
			return nil, h.mapError(claim, err)
		}
		output.Outcome = OutcomeRejected
	}

	metrics.ClaimOutcomes.WithLabelValues(output.Outcome).Inc()

	h.logger.Info("claim verified", map[string]interface{}{
		"claimId":    claim.ID,
		"businessId": business.ID,
		"outcome":    output.Outcome,
		"confidence": output.MatchConfidence,
		"candidates": len(input.Candidates),
	})

	return output, nil
}

func (h *Handler) mapError(claim *models.Claim, err error) error {
	switch {
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return apperrors.NewAlreadyClaimedError(claim.BusinessID)
	case errors.Is(err, repository.ErrClaimNotOpen):
		return apperrors.NewInvalidClaimStateError(claim.ID, "closed")
	default:
		return err
	}
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
		"jobKey":  job.Key,
		"outcome": output.Outcome,
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
