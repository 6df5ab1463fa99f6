// Package notify sends the onboarding completion notice through Amazon SES.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"fourall/internal/config"
	"fourall/internal/models"
)

// sesAPI is the part of the SES client the notifier uses
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailNotifier handles sending emails via Amazon SES
type EmailNotifier struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	logger     *zap.Logger
}

// NewEmailNotifier creates the notifier. An empty from address yields a disabled notifier.
func NewEmailNotifier(ctx context.Context, cfg config.Email, logger *zap.Logger) (*EmailNotifier, error) {
	if cfg.FromEmail == "" {
		logger.Info("email notifier disabled: EMAIL_FROM not configured")
		return &EmailNotifier{logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email notifier enabled", zap.String("from", cfg.FromEmail), zap.String("region", cfg.Region))
	return newEmailNotifier(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

func newEmailNotifier(client sesAPI, cfg config.Email, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		client:     client,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		appBaseURL: cfg.BaseURL,
		enabled:    true,
		logger:     logger,
	}
}

// IsEnabled returns whether emails are actually sent
func (n *EmailNotifier) IsEnabled() bool {
	return n.enabled
}

// OnboardingComplete emails the user a description of their new setup
func (n *EmailNotifier) OnboardingComplete(ctx context.Context, p *models.UserProfile, summary string) error {
	if p.Email == "" {
		return nil
	}
	if !n.enabled {
		n.logger.Debug("skipping completion email (notifier disabled)", zap.String("profile_id", p.ProfileID))
		return nil
	}

	name := p.Name
	if name == "" {
		name = "there"
	}

	subject := "Your 4All setup is ready"
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #1a1a1a; font-size: 18px; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #0b5394; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #ffffff; padding: 30px; border: 2px solid #0b5394; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 14px 32px; background-color: #0b5394; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 14px; color: #444; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Welcome to 4All</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			<p>%s</p>
			<p>You can change any of these settings later from your profile.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">Open 4All</a>
			</p>
		</div>
		<div class="footer">
			<p>This is an automated email from 4All. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, html.EscapeString(name), html.EscapeString(summary), n.appBaseURL)

	textBody := fmt.Sprintf(`Hi %s,

%s

You can change any of these settings later from your profile.

Open 4All: %s

---
This is an automated email from 4All. Please do not reply.
`, name, summary, n.appBaseURL)

	return n.sendEmail(ctx, p.Email, subject, htmlBody, textBody)
}

func (n *EmailNotifier) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := n.fromEmail
	if n.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fields := []zap.Field{zap.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		fields = append(fields, zap.String("message_id", *result.MessageId))
	}
	n.logger.Info("email sent", fields...)
	return nil
}
