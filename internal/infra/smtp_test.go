package infra

import (
	"errors"
	"net/smtp"
	"testing"

	"salescrm/internal/config"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_Send(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "mail.test", SMTPPort: 2525, SMTPUser: "crm@mail.test", SMTPPassword: "pw"})

	var got *email.Email
	var gotAddr string
	m.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		got, gotAddr = e, addr
		return nil
	}

	require.NoError(t, m.Send("boss@mail.test", "New lead", "body"))
	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, []string{"boss@mail.test"}, got.To)
	assert.Equal(t, "crm@mail.test", got.From)
	assert.Equal(t, "New lead", got.Subject)
}

func TestMailer_BreakerOpensAfterFailures(t *testing.T) {
	m := NewMailer(&config.Config{SMTPHost: "mail.test", SMTPPort: 25})
	calls := 0
	m.send = func(*email.Email, string, smtp.Auth) error {
		calls++
		return errors.New("connection refused")
	}

	for i := 0; i < DefaultCBConfig().FailureThreshold; i++ {
		assert.Error(t, m.Send("a@b.co", "s", "b"))
	}
	assert.ErrorIs(t, m.Send("a@b.co", "s", "b"), ErrCircuitOpen)
	assert.Equal(t, DefaultCBConfig().FailureThreshold, calls)
	assert.Equal(t, CBOpen, m.Breaker().State())
}
