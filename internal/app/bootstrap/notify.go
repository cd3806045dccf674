package bootstrap

import (
	"context"
	"encoding/json"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wardenlabs/childguard/internal/config"
	"github.com/wardenlabs/childguard/internal/notify"
	"github.com/wardenlabs/childguard/pkg/logging"
)

// BuildEmailSender selects an email provider from configuration. Provider
// "auto" prefers SendGrid, then SES, then the logging stub; a named provider
// that is not configured also falls back to the stub rather than failing
// startup.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}

	provider := cfg.EmailProvider
	if provider == "auto" {
		switch {
		case cfg.SendGridAPIKey != "":
			provider = "sendgrid"
		case cfg.SESFromEmail != "":
			provider = "ses"
		default:
			provider = "stub"
		}
	}

	switch provider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			logger.Info("email provider selected", "provider", "sendgrid")
			return sender
		}
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			logger.Warn("AWS config load failed, email falls back to stub", "error", err)
			break
		}
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			logger.Info("email provider selected", "provider", "ses")
			return sender
		}
	}

	logger.Info("email provider selected", "provider", "stub")
	return notify.NewStubEmailSender(logger)
}

// BuildNotifyService assembles the parent-alert and urgent-ticket
// notification service.
func BuildNotifyService(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *notify.Service {
	if logger == nil {
		logger = logging.Default()
	}

	var guardians notify.GuardianDirectory
	if cfg.GuardianMapJSON != "" {
		emails := map[string]string{}
		if err := json.Unmarshal([]byte(cfg.GuardianMapJSON), &emails); err != nil {
			logger.Warn("invalid GUARDIAN_MAP_JSON, parent alerts disabled", "error", err)
		} else {
			guardians = notify.NewStaticGuardianDirectory(emails)
		}
	}

	return notify.NewService(notify.ServiceConfig{
		Email:     BuildEmailSender(ctx, cfg, logger),
		Guardians: guardians,
		OpsEmail:  cfg.OpsAlertEmail,
		Logger:    logger,
	})
}
