package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/hibiken/asynq"
)

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer constructs a mailer for the given relay address and sender.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{addr: fmt.Sprintf("%s:%d", host, port), from: from}
}

// Send delivers a single message.
func (m *SMTPMailer) Send(_ context.Context, to, subject, body string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String()))
}

// ActivationEmailHandler turns activation email tasks into outbound mail.
type ActivationEmailHandler struct {
	mailer  Mailer
	baseURL string
	logger  *slog.Logger
}

// NewActivationEmailHandler constructs the handler. Activation links are built
// against baseURL.
func NewActivationEmailHandler(mailer Mailer, baseURL string, logger *slog.Logger) *ActivationEmailHandler {
	return &ActivationEmailHandler{mailer: mailer, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Handle processes TaskTypeActivationEmail tasks.
func (h *ActivationEmailHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ActivationEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	link := fmt.Sprintf("%s/auth/activate?token=%s", h.baseURL, payload.Token)
	body := fmt.Sprintf("Welcome!\r\n\r\nActivate your account by visiting:\r\n%s\r\n", link)
	if err := h.mailer.Send(ctx, payload.To, "Activate your account", body); err != nil {
		h.logger.Warn("activation email delivery failed", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	h.logger.Info("activation email sent", slog.String("to", payload.To))
	return nil
}
