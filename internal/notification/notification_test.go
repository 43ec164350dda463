package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestEmailService_Send(t *testing.T) {
	t.Run("успешная отправка", func(t *testing.T) {
		svc := NewEmailService(EmailConfig{
			Host:     "smtp.example.com",
			Port:     587,
			User:     "mailer",
			Password: "secret",
			From:     "noreply@example.com",
			FromName: "Seatkeeper",
		})

		var (
			gotAddr string
			gotTo   []string
			gotMsg  string
			gotAuth smtp.Auth
		)
		svc.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg, gotAuth = addr, to, string(msg), a
			assert.Equal(t, "noreply@example.com", from)
			return nil
		}

		err := svc.Send(context.Background(), "member@example.com", "You've been invited", "<p>hi</p>")

		require.NoError(t, err)
		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, []string{"member@example.com"}, gotTo)
		assert.NotNil(t, gotAuth)
		assert.Contains(t, gotMsg, "From: Seatkeeper <noreply@example.com>\r\n")
		assert.Contains(t, gotMsg, "To: member@example.com\r\n")
		assert.Contains(t, gotMsg, "Subject: You've been invited\r\n")
		assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8")
		assert.True(t, strings.HasSuffix(gotMsg, "<html><body><p>hi</p></body></html>"))
	})

	t.Run("переводы строк в заголовках вырезаются", func(t *testing.T) {
		svc := NewEmailService(EmailConfig{Host: "localhost", Port: 25, From: "noreply@example.com"})
		var gotMsg string
		svc.sendMail = func(_ string, a smtp.Auth, _ string, _ []string, msg []byte) error {
			assert.Nil(t, a, "без пользователя нет авторизации")
			gotMsg = string(msg)
			return nil
		}

		err := svc.Send(context.Background(), "a@example.com\r\nBcc: evil@example.com", "hi\r\nBcc: evil@example.com", "body")

		require.NoError(t, err)
		assert.NotContains(t, gotMsg, "\r\nBcc:")
	})

	t.Run("ошибка SMTP", func(t *testing.T) {
		svc := NewEmailService(EmailConfig{Host: "localhost", Port: 25, From: "noreply@example.com"})
		boom := errors.New("connection refused")
		svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return boom }

		err := svc.Send(context.Background(), "a@example.com", "hi", "body")

		assert.ErrorIs(t, err, boom)
	})

	t.Run("отмененный контекст", func(t *testing.T) {
		svc := NewEmailService(EmailConfig{Host: "localhost", Port: 25})
		svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
			t.Fatal("send must not be called")
			return nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, svc.Send(ctx, "a@example.com", "hi", "body"), context.Canceled)
	})
}

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.Send(context.Background(), "a@example.com", "Subject", "<p>body</p>"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a@example.com", fields["to"])
	assert.Equal(t, "Subject", fields["subject"])
}
