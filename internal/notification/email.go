package notification

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
)

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailService отправляет письма через SMTP.
type EmailService struct {
	config   EmailConfig
	sendMail sendMailFunc
}

func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config, sendMail: smtp.SendMail}
}

func (s *EmailService) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	to = stripHeaderBreaks(to)
	msg := s.compose(to, subject, body)

	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.sendMail(addr, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (s *EmailService) compose(to, subject, body string) []byte {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", s.config.FromName), s.config.From)
	}

	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n<html><body>%s</body></html>",
		from, to, mime.QEncoding.Encode("utf-8", stripHeaderBreaks(subject)), body))
}

// stripHeaderBreaks не дает значению из запроса дописать свои заголовки.
func stripHeaderBreaks(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
