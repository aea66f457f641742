package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"eventroster/internal/domain"
)

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Config holds configuration for creating a notifier.
type Config struct {
	Provider    string
	FromAddress string
	FromName    string
	SES         SESConfig
}

// NewNotifier creates a notifier from config. Provider "webhook" posts the
// reminder to the channel ref as a URL; "ses" emails it to the channel ref
// as an address; "noop" or unknown only logs.
func NewNotifier(config Config, logger *slog.Logger) (domain.Notifier, error) {
	switch config.Provider {
	case "webhook":
		return &webhookNotifier{
			client: &http.Client{Timeout: 10 * time.Second},
			logger: logger,
		}, nil
	case "ses":
		sesConfig := config.SES
		awsCfg := aws.Config{
			Region: sesConfig.Region,
			Credentials: aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(
					sesConfig.AccessKeyID,
					sesConfig.SecretAccessKey,
					"",
				),
			),
		}
		return &sesNotifier{
			client:      ses.NewFromConfig(awsCfg),
			fromAddress: config.FromAddress,
			fromName:    config.FromName,
			logger:      logger,
		}, nil
	case "noop":
		return &noopNotifier{logger: logger}, nil
	default:
		logger.Warn("unknown notifier provider, using noop", "provider", config.Provider)
		return &noopNotifier{logger: logger}, nil
	}
}

// webhookNotifier posts the rendered reminder as JSON to the channel ref.
type webhookNotifier struct {
	client *http.Client
	logger *slog.Logger
}

type webhookPayload struct {
	Event     string `json:"event"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func (n *webhookNotifier) Send(ctx context.Context, channelRef, message string) error {
	body, err := json.Marshal(webhookPayload{
		Event:     "event.reminder",
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channelRef, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	n.logger.Debug("webhook reminder delivered", "channel", channelRef, "status", resp.StatusCode)
	return nil
}

// sesNotifier emails the rendered reminder to the channel ref via AWS SES.
type sesNotifier struct {
	client      *ses.Client
	fromAddress string
	fromName    string
	logger      *slog.Logger
}

func (n *sesNotifier) Send(ctx context.Context, channelRef, message string) error {
	source := n.fromAddress
	if n.fromName != "" {
		source = fmt.Sprintf("%s <%s>", n.fromName, n.fromAddress)
	}
	input := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses: []string{channelRef},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String("Upcoming event reminder"),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(message),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send email via SES: %w", err)
	}
	n.logger.Debug("SES reminder delivered", "channel", channelRef, "message_id", aws.ToString(result.MessageId))
	return nil
}

type noopNotifier struct {
	logger *slog.Logger
}

func (n *noopNotifier) Send(ctx context.Context, channelRef, message string) error {
	n.logger.Info("reminder would be delivered (noop)", "channel", channelRef, "message", message)
	return nil
}
