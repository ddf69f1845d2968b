package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// LockoutNotifier is told when a (username, client IP) key becomes locked
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, record *models.LoginAttemptRecord, lockedUntil time.Time) error
}

// SESClient is the subset of the SES API used for alerts
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESLockoutNotifier emails an operator when an account locks
type AWSSESLockoutNotifier struct {
	sesClient   SESClient
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewAWSSESLockoutNotifier loads the default AWS config for region and builds a notifier
func NewAWSSESLockoutNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*AWSSESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddress, logger), nil
}

// NewLockoutNotifierWithClient builds a notifier around an existing SES client
func NewLockoutNotifierWithClient(client SESClient, fromAddress, toAddress string, logger *slog.Logger) *AWSSESLockoutNotifier {
	return &AWSSESLockoutNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}
}

// NotifyLockout sends the alert email
func (s *AWSSESLockoutNotifier) NotifyLockout(ctx context.Context, record *models.LoginAttemptRecord, lockedUntil time.Time) error {
	textBody := fmt.Sprintf(`Admin login locked

Username:        %s
Client IP:       %s
Failed attempts: %d
Locked until:    %s

No further logins are accepted from this address for this username until the lockout ends.
If these attempts were not made by an administrator, review the audit log.
`,
		record.Username,
		record.ClientIP,
		record.FailureCount,
		lockedUntil.UTC().Format(time.RFC1123),
	)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Admin login locked for %s", record.Username)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send lockout alert via SES",
			slog.String("recipient", logger.SanitizedEmail(s.toAddress)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("lockout alert sent",
		slog.String("recipient", logger.SanitizedEmail(s.toAddress)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
