package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/sentinel/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSink e-mails notifications at or above a minimum severity using AWS SES
type SESSink struct {
	client      sesAPI
	fromAddress string
	recipients  []string
	minSeverity models.Severity
	logger      *slog.Logger
}

// NewSESSink creates a SESSink using the default AWS credential chain
func NewSESSink(ctx context.Context, region, fromAddress string, recipients []string, minSeverity models.Severity, logger *slog.Logger) (*SESSink, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESSink(ses.NewFromConfig(cfg), fromAddress, recipients, minSeverity, logger), nil
}

func newSESSink(client sesAPI, fromAddress string, recipients []string, minSeverity models.Severity, logger *slog.Logger) *SESSink {
	return &SESSink{
		client:      client,
		fromAddress: fromAddress,
		recipients:  recipients,
		minSeverity: minSeverity,
		logger:      logger,
	}
}

// Notify implements Sink. Notifications below the minimum severity are skipped.
func (s *SESSink) Notify(ctx context.Context, n models.Notification) error {
	if n.Severity.Rank() < s.minSeverity.Rank() || len(s.recipients) == 0 {
		return nil
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: s.recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Severity)), n.Title)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(emailBody(n)),
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	s.logger.Info("alert email sent",
		slog.String("alert_id", n.AlertID.String()),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

func emailBody(n models.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", n.Body)
	fmt.Fprintf(&b, "Alert:    %s\n", n.Type)
	fmt.Fprintf(&b, "Severity: %s\n", n.Severity)
	fmt.Fprintf(&b, "Time:     %s\n", n.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "ID:       %s\n", n.AlertID)
	if n.RequireInteraction {
		b.WriteString("\nThis alert requires acknowledgement.\n")
	}
	return b.String()
}
