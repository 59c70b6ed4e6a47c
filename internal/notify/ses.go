package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/munai7/TrustGate/internal/models"
)

// sesAPI is the subset of *ses.Client used to send mail
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier e-mails each alert to the SOC distribution list
type SESNotifier struct {
	client      sesAPI
	fromAddress string
	recipients  []string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS credential chain for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, recipients []string, logger *slog.Logger) (*SESNotifier, error) {
	if fromAddress == "" || len(recipients) == 0 {
		return nil, fmt.Errorf("SES sender and recipients are required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESNotifier(ses.NewFromConfig(cfg), fromAddress, recipients, logger), nil
}

func newSESNotifier(client sesAPI, fromAddress string, recipients []string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: fromAddress,
		recipients:  recipients,
		logger:      logger,
	}
}

func (n *SESNotifier) Name() string {
	return "ses"
}

func (n *SESNotifier) Publish(ctx context.Context, alert *models.Alert) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(alertSubject(alert)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(alertBody(alert)),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	n.logger.Info("alert email sent",
		slog.String("alert_id", alert.ID.String()),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

func alertSubject(alert *models.Alert) string {
	return fmt.Sprintf("[SOC] %s: %s risk login for %s", alert.Reason, alert.RuleLabel, alert.Username)
}

func alertBody(alert *models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Alert ID:   %s\n", alert.ID)
	fmt.Fprintf(&b, "Time:       %s\n", alert.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Reason:     %s\n", alert.Reason)
	fmt.Fprintf(&b, "User:       %s\n", alert.Username)
	fmt.Fprintf(&b, "Source IP:  %s\n", alert.SourceAddress)
	fmt.Fprintf(&b, "Country:    %s\n", alert.Country)
	fmt.Fprintf(&b, "Device:     %s\n", alert.Device)
	fmt.Fprintf(&b, "Outcome:    %s\n", alert.Outcome)
	fmt.Fprintf(&b, "Rule risk:  %s\n", alert.RuleLabel)
	fmt.Fprintf(&b, "Model risk: %s\n", alert.MLLabel)
	return b.String()
}
