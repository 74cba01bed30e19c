// internal/workers/claims/notify-claim-outcome/handler.go
package notifyclaimoutcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/common/logger"
	"business-ranking-workers/internal/common/metrics"
	"business-ranking-workers/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-claim-outcome"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type emailTemplate struct {
	subject string
	body    string
}

var templates = map[string]emailTemplate{
	OutcomeApproved: {
		subject: "Your claim for {{businessName}} was approved",
		body:    "Good news! You now manage {{businessName}} on the platform. Your listing has been upgraded and marked as verified.",
	},
	OutcomeNeedsManualReview: {
		subject: "Your claim for {{businessName}} is under review",
		body:    "We could not verify {{businessName}} automatically (match confidence {{confidence}}%). Our team will review your claim shortly.",
	},
	OutcomeNeedsInfo: {
		subject: "We need more information about {{businessName}}",
		body:    "Before we can approve your claim for {{businessName}} we need a little more information. {{reason}}",
	},
	OutcomeRejected: {
		subject: "Your claim for {{businessName}} was not approved",
		body:    "We could not approve your claim for {{businessName}}. {{reason}}",
	},
}

type Handler struct {
	config     *Config
	claims     *repository.ClaimStore
	businesses *repository.BusinessStore
	sesClient  SESService
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, db *sql.DB, sesClient SESService, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		claims:     repository.NewClaimStore(db),
		businesses: repository.NewBusinessStore(db),
		sesClient:  sesClient,
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
	tmpl, ok := templates[input.Outcome]
	if !ok {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown outcome %q", input.Outcome))
	}

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	if !h.config.EmailEnabled || h.sesClient == nil {
		return &Output{NotificationID: notificationID, Status: StatusDisabled, SentAt: sentAt}, nil
	}

	claim, err := h.claims.GetClaim(ctx, input.ClaimID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, apperrors.NewClaimNotFoundError(input.ClaimID)
	}
	if claim.ContactEmail == "" {
		h.logger.Warn("claim has no contact email", map[string]interface{}{
			"claimId": claim.ID,
		})
		return &Output{NotificationID: notificationID, Status: StatusSkipped, SentAt: sentAt}, nil
	}

	business, err := h.businesses.FindByID(ctx, claim.BusinessID)
	if err != nil {
		return nil, err
	}
	businessName := "your business"
	if business != nil {
		businessName = business.Name
	}

	data := map[string]interface{}{
		"businessName": businessName,
		"reason":       input.Reason,
	}
	if claim.GMBVerification != nil {
		data["confidence"] = claim.GMBVerification.MatchConfidence
	}

	subject := renderTemplate(tmpl.subject, data)
	body := strings.TrimSpace(renderTemplate(tmpl.body, data))

	messageID, err := h.sendEmail(ctx, claim.ContactEmail, subject, body)
	if err != nil {
		return nil, apperrors.NewNotificationSendFailedError("email", err)
	}

	h.logger.Info("claim outcome sent", map[string]interface{}{
		"claimId": claim.ID,
		"outcome": input.Outcome,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         StatusSent,
		MessageID:      messageID,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) (string, error) {
	out, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
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

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Drop placeholders without a value.
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
