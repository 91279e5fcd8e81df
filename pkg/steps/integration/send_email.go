package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// smtpSendMail is swapped out in tests.
var smtpSendMail = smtp.SendMail

// SendEmailFactory creates send-email steps.
type SendEmailFactory struct{}

func NewSendEmailFactory() *SendEmailFactory {
	return &SendEmailFactory{}
}

func (f *SendEmailFactory) ID() string {
	return string(models.StepTypeSendEmail)
}

func (f *SendEmailFactory) Name() string {
	return "Send Email"
}

func (f *SendEmailFactory) Description() string {
	return "Sends a plain-text email through an SMTP server."
}

func (f *SendEmailFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"smtp_host": map[string]any{
				"type":        "string",
				"description": "SMTP server host.",
			},
			"smtp_port": map[string]any{
				"type":        "integer",
				"description": "SMTP server port.",
				"default":     587,
			},
			"username": map[string]any{
				"type":        "string",
				"description": "SMTP username. Leave empty for unauthenticated servers.",
			},
			"password": map[string]any{
				"type":        "string",
				"description": "SMTP password.",
			},
			"from": map[string]any{
				"type":        "string",
				"description": "Sender address.",
			},
			"to": map[string]any{
				"type":        "array",
				"description": "Recipient addresses.",
				"items": map[string]any{
					"type": "string",
				},
				"minItems": 1,
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Message subject. Supports {{name}} placeholders.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Plain-text message body. Supports {{name}} placeholders.",
			},
		},
		"required":             []string{"smtp_host", "from", "to", "subject"},
		"additionalProperties": false,
	}
}

func (f *SendEmailFactory) Create(config map[string]any) (protocol.Step, error) {
	host, ok := config["smtp_host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("missing or invalid 'smtp_host' in configuration")
	}

	port := 587
	if portValue, ok := config["smtp_port"].(float64); ok && portValue > 0 {
		port = int(portValue)
	}

	from, ok := config["from"].(string)
	if !ok || from == "" {
		return nil, fmt.Errorf("missing or invalid 'from' in configuration")
	}

	rawRecipients, ok := config["to"].([]any)
	if !ok || len(rawRecipients) == 0 {
		return nil, fmt.Errorf("missing or invalid 'to' in configuration")
	}

	recipients := make([]string, 0, len(rawRecipients))

	for _, raw := range rawRecipients {
		address, ok := raw.(string)
		if !ok || address == "" {
			return nil, fmt.Errorf("invalid recipient %v in configuration", raw)
		}

		recipients = append(recipients, address)
	}

	subject, ok := config["subject"].(string)
	if !ok {
		return nil, fmt.Errorf("missing or invalid 'subject' in configuration")
	}

	body, _ := config["body"].(string)
	username, _ := config["username"].(string)
	password, _ := config["password"].(string)

	return &SendEmailStep{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       recipients,
		subject:  subject,
		body:     body,
	}, nil
}

type SendEmailStep struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	subject  string
	body     string
}

func (s *SendEmailStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger = logger.With("module", "send_email_step")
	logger.InfoContext(ctx, "Sending email", "recipients", len(s.to))

	message := strings.Join([]string{
		"From: " + s.from,
		"To: " + strings.Join(s.to, ", "),
		"Subject: " + s.subject,
		"",
		s.body,
	}, "\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	address := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := smtpSendMail(address, auth, s.from, s.to, []byte(message)); err != nil {
		return models.Failure(fmt.Sprintf("email delivery failed: %v", err)), nil
	}

	return &models.StepOutput{
		Success: true,
		Result:  map[string]any{"recipients": len(s.to)},
	}, nil
}
