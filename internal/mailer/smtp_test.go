package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/pendency-service/internal/config"
)

type deliveryAttempt struct {
	port int
	mode tlsMode
}

// fakeDelivery replaces the SMTP conversation, failing every port not listed
// in okPorts and recording each attempt.
func fakeDelivery(okPorts map[int]bool, attempts *[]deliveryAttempt) func(context.Context, config.SMTPConfig, int, tlsMode, Message) error {
	return func(_ context.Context, _ config.SMTPConfig, port int, mode tlsMode, _ Message) error {
		*attempts = append(*attempts, deliveryAttempt{port: port, mode: mode})
		if okPorts[port] {
			return nil
		}
		return errors.New("connection refused")
	}
}

func newDiagnosticTransport(okPorts map[int]bool, attempts *[]deliveryAttempt) *SMTPTransport {
	transport := NewSMTPTransport(config.SMTPConfig{Host: "smtp.example.gov.br", Port: 587})
	transport.deliver = fakeDelivery(okPorts, attempts)
	return transport
}

func TestDiagnoseStopsAtFirstSuccess(t *testing.T) {
	var attempts []deliveryAttempt
	transport := newDiagnosticTransport(map[int]bool{587: true}, &attempts)

	reports := transport.Diagnose(context.Background(), Message{To: "ops@example.gov.br"})

	// 465 fails, 587 succeeds, 25 is never tried.
	require.Len(t, reports, 2)
	assert.Equal(t, 465, reports[0].Port)
	assert.False(t, reports[0].OK)
	assert.Equal(t, "connection refused", reports[0].Err)
	assert.Equal(t, 587, reports[1].Port)
	assert.True(t, reports[1].OK)
	assert.Empty(t, reports[1].Err)

	require.Len(t, attempts, 2)
	assert.Equal(t, modeImplicitTLS, attempts[0].mode)
	assert.Equal(t, modeSTARTTLS, attempts[1].mode)
}

func TestDiagnoseReportsEveryFailure(t *testing.T) {
	var attempts []deliveryAttempt
	transport := newDiagnosticTransport(map[int]bool{}, &attempts)

	reports := transport.Diagnose(context.Background(), Message{To: "ops@example.gov.br"})

	require.Len(t, reports, 3)
	ports := []int{reports[0].Port, reports[1].Port, reports[2].Port}
	assert.Equal(t, []int{465, 587, 25}, ports)
	for _, report := range reports {
		assert.False(t, report.OK)
		assert.Equal(t, "connection refused", report.Err)
	}
	assert.Equal(t, modePlaintext, attempts[2].mode)
}

func TestDeliverModeFollowsConfiguredPort(t *testing.T) {
	var attempts []deliveryAttempt
	transport := NewSMTPTransport(config.SMTPConfig{Host: "smtp.example.gov.br", Port: 465})
	transport.deliver = fakeDelivery(map[int]bool{465: true}, &attempts)

	require.NoError(t, transport.Deliver(context.Background(), Message{To: "ops@example.gov.br"}))
	require.Len(t, attempts, 1)
	assert.Equal(t, 465, attempts[0].port)
	assert.Equal(t, modeImplicitTLS, attempts[0].mode)

	attempts = nil
	transport = NewSMTPTransport(config.SMTPConfig{Host: "smtp.example.gov.br", Port: 587})
	transport.deliver = fakeDelivery(map[int]bool{587: true}, &attempts)

	require.NoError(t, transport.Deliver(context.Background(), Message{To: "ops@example.gov.br"}))
	require.Len(t, attempts, 1)
	assert.Equal(t, modeSTARTTLS, attempts[0].mode)
}
