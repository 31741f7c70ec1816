package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"minimalgym/internal/infra"
	"minimalgym/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	SaleID string `json:"sale_id"`
	Email  string `json:"to_email"`
}

// ReceiptWorker renders the sale receipt as PDF and queues it for e-mail.
type ReceiptWorker struct {
	sales        repository.SaleRepository
	dispatcher   *Dispatcher
	businessName string
	storagePath  string
}

func NewReceiptWorker(sales repository.SaleRepository, dispatcher *Dispatcher, businessName, storagePath string) *ReceiptWorker {
	return &ReceiptWorker{
		sales:        sales,
		dispatcher:   dispatcher,
		businessName: businessName,
		storagePath:  storagePath,
	}
}

func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return permanent("receipt_worker: invalid payload: %v", err)
	}
	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		return permanent("receipt_worker: invalid sale_id %q", payload.SaleID)
	}

	sale, err := w.sales.FindByID(ctx, nil, saleID)
	if repository.IsNotFound(err) {
		return permanent("receipt_worker: sale %s not found", saleID)
	}
	if err != nil {
		return fmt.Errorf("receipt_worker: load sale: %w", err)
	}

	pdfPath, err := infra.GenerateReceiptPDF(sale, w.businessName, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("pdf", pdfPath).Str("sale_id", payload.SaleID).Msg("receipt_worker: PDF generated")

	if payload.Email == "" || w.dispatcher == nil {
		return nil
	}
	job := EmailJobPayload{
		ToEmail: payload.Email,
		Subject: fmt.Sprintf("%s receipt %s", w.businessName, sale.ReceiptNumber),
		Body:    fmt.Sprintf("Your receipt is attached.\nTotal: %s", sale.Total.StringFixed(2)),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("receipt_worker: enqueue email: %w", err)
	}
	return nil
}
