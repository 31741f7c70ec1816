package worker

import (
	"context"
	"encoding/json"

	"minimalgym/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// Sender delivers one message. *infra.Mailer implements it.
type Sender interface {
	Enabled() bool
	SendReceipt(to, subject, body, pdfPath string) error
}

// EmailWorker sends receipts through a circuit breaker so an SMTP outage
// fails fast instead of tying up workers.
type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return permanent("email_worker: invalid payload: %v", err)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	if !w.sender.Enabled() {
		return permanent("email_worker: %v", infra.ErrMailerDisabled)
	}

	err := w.cb.Execute(func() error {
		return w.sender.SendReceipt(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	})
	if err != nil {
		return err
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: receipt sent")
	return nil
}
