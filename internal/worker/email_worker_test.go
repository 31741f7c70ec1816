package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"minimalgym/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	enabled bool
	err     error
	sent    []string
}

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) SendReceipt(to, _, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func emailPayload(t *testing.T, to string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(EmailJobPayload{ToEmail: to, Subject: "Receipt", Body: "hi"})
	require.NoError(t, err)
	return raw
}

func TestEmailWorker_Sends(t *testing.T) {
	sender := &fakeSender{enabled: true}
	w := NewEmailWorker(sender, infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp")))

	require.NoError(t, w.Process(context.Background(), emailPayload(t, "ana@example.com")))
	assert.Equal(t, []string{"ana@example.com"}, sender.sent)
}

func TestEmailWorker_EmptyRecipientIsSkipped(t *testing.T) {
	sender := &fakeSender{enabled: true}
	w := NewEmailWorker(sender, infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp")))

	require.NoError(t, w.Process(context.Background(), emailPayload(t, "")))
	assert.Empty(t, sender.sent)
}

func TestEmailWorker_DisabledMailerIsPermanent(t *testing.T) {
	w := NewEmailWorker(&fakeSender{}, infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp")))

	err := w.Process(context.Background(), emailPayload(t, "ana@example.com"))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestEmailWorker_BadPayloadIsPermanent(t *testing.T) {
	w := NewEmailWorker(&fakeSender{enabled: true}, infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp")))

	err := w.Process(context.Background(), json.RawMessage(`{"to_email":`))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestEmailWorker_BreakerOpensAfterFailures(t *testing.T) {
	sender := &fakeSender{enabled: true, err: errors.New("smtp down")}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp", FailureThreshold: 2})
	w := NewEmailWorker(sender, cb)

	for i := 0; i < 2; i++ {
		assert.Error(t, w.Process(context.Background(), emailPayload(t, "ana@example.com")))
	}
	assert.Equal(t, infra.CBOpen, cb.State())
	assert.ErrorIs(t, w.Process(context.Background(), emailPayload(t, "ana@example.com")), infra.ErrCircuitOpen)
}
