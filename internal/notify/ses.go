package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog"
	"github.com/telodox/portal/internal/telemetry"
)

// SESClient is the subset of the SES v2 API the notifier uses.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig configures the SES notifier. Static keys are optional; without them the
// default AWS credential chain is used.
type SESConfig struct {
	Region          string
	FromEmail       string
	AccessKeyID     string
	SecretAccessKey string
}

// SESNotifier sends e-mail with Amazon SES.
type SESNotifier struct {
	client SESClient
	from   string
}

// NewSESNotifier loads AWS configuration and builds an SES client.
func NewSESNotifier(ctx context.Context, cfg SESConfig) (*SESNotifier, error) {
	if cfg.FromEmail == "" {
		return nil, errors.New("SES sender address is required")
	}

	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifierWithClient(sesv2.NewFromConfig(awsConfig), cfg.FromEmail), nil
}

func NewSESNotifierWithClient(client SESClient, from string) *SESNotifier {
	return &SESNotifier{client: client, from: from}
}

func (n *SESNotifier) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}

	metrics := telemetry.GetMetrics()

	out, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		telemetry.Count(ctx, metrics.NotificationErrorsTotal, "provider", "ses")
		return fmt.Errorf("failed to send email: %w", err)
	}

	telemetry.Count(ctx, metrics.NotificationsTotal, "provider", "ses")
	zerolog.Ctx(ctx).Debug().
		Str("message_id", aws.ToString(out.MessageId)).
		Int("recipients", len(msg.To)).
		Msg("notification sent")

	return nil
}
