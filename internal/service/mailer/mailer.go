package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"taskboard/config"
	"taskboard/internal/task"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a rendered message. The SMTP transport lives behind this
// interface so handlers can be tested without a mail server.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Service struct {
	sender Sender
	logger *zap.Logger
}

func NewService(sender Sender, logger *zap.Logger) *Service {
	return &Service{
		sender: sender,
		logger: logger,
	}
}

// SendTask renders the template for the task's type and language and hands
// the result to the transport. Render and transport errors both propagate
// to the consumer's failure path.
func (s *Service) SendTask(ctx context.Context, t task.EmailTask) error {
	msg, err := Render(t)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", t.To, err)
	}

	s.logger.Info("Email sent",
		zap.String("to", t.To),
		zap.String("type", t.Type),
	)
	return nil
}

// SMTPSender sends over plain SMTP with optional auth.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		s.cfg.From, msg.To, msg.Subject, msg.Body,
	)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, []byte(body))
}
