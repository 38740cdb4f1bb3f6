package worker

// notificacion_worker.go
// Processes transition-notification jobs from QueueNotificaciones.
// Posts the webhook to the origin B2B system with exponential backoff and,
// on despacho/entrega, generates the order-summary PDF and enqueues an email
// to the customer. Notifications never mutate pedido state — a failed
// delivery lands in the DLQ, the transition stands.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pedidos/internal/infra"
	"pedidos/internal/model"
	"pedidos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Eventos notified to the origin system / customer.
const (
	EventoCreditoAprobado  = "credito_aprobado"
	EventoCreditoRechazado = "credito_rechazado"
	EventoPedidoDespachado = "pedido_despachado"
	EventoPedidoEntregado  = "pedido_entregado"
)

// NotificacionJobPayload is the job envelope sent to QueueNotificaciones.
type NotificacionJobPayload struct {
	PedidoID string `json:"pedido_id"`
	Evento   string `json:"evento"`
}

// NotificacionWorker delivers transition notifications.
type NotificacionWorker struct {
	pedidoRepo     repository.PedidoRepository
	webhook        *infra.WebhookClient
	dispatcher     *Dispatcher
	rdb            *redis.Client
	pdfStoragePath string
}

func NewNotificacionWorker(
	pedidoRepo repository.PedidoRepository,
	webhook *infra.WebhookClient,
	dispatcher *Dispatcher,
	rdb *redis.Client,
	pdfStoragePath string,
) *NotificacionWorker {
	return &NotificacionWorker{
		pedidoRepo:     pedidoRepo,
		webhook:        webhook,
		dispatcher:     dispatcher,
		rdb:            rdb,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process handles a single notification job:
//  1. Parse NotificacionJobPayload from the job envelope
//  2. Fetch the pedido snapshot
//  3. POST the webhook with exponential backoff (max 3 retries); exhausted
//     retries move the job to the DLQ
//  4. On despacho/entrega with a customer email: generate the PDF summary
//     and enqueue the email job
func (w *NotificacionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload NotificacionJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notificacion_worker: invalid payload")
		return
	}

	pedidoID, err := uuid.Parse(payload.PedidoID)
	if err != nil {
		log.Error().Str("pedido_id", payload.PedidoID).Msg("notificacion_worker: invalid pedido_id")
		return
	}

	pedido, err := w.pedidoRepo.FindByID(ctx, pedidoID)
	if err != nil {
		log.Error().Err(err).Str("pedido_id", payload.PedidoID).Msg("notificacion_worker: pedido not found")
		return
	}

	if w.webhook.Enabled() {
		w.entregarWebhook(ctx, pedido, payload)
	}

	if payload.Evento == EventoPedidoDespachado || payload.Evento == EventoPedidoEntregado {
		w.notificarCliente(ctx, pedido, payload.Evento)
	}
}

func (w *NotificacionWorker) entregarWebhook(ctx context.Context, pedido *model.Pedido, payload NotificacionJobPayload) {
	var logistico *string
	if pedido.EstadoLogistico != nil {
		l := string(*pedido.EstadoLogistico)
		logistico = &l
	}
	body := infra.WebhookPayload{
		PedidoID:        pedido.ID.String(),
		CodigoOrigen:    pedido.CodigoOrigen,
		Evento:          payload.Evento,
		EstadoGeneral:   string(pedido.EstadoGeneral),
		EstadoCredito:   string(pedido.EstadoCredito),
		EstadoLogistico: logistico,
		FechaEnvio:      time.Now().UTC().Format(time.RFC3339),
	}

	// Exponential backoff: attempt 1 = immediate, 2 = 1s, 3 = 2s. When the
	// circuit breaker is open every attempt fast-fails.
	err := withRetry(ctx, 3, func(attempt int) error {
		if err := w.webhook.Notificar(ctx, body); err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("pedido_id", body.PedidoID).
				Msg("notificacion_worker: webhook attempt failed, retrying")
			return err
		}
		return nil
	})
	if err != nil {
		raw, _ := json.Marshal(payload)
		SendToDLQ(ctx, w.rdb, QueueNotificaciones, payload.PedidoID, payload.Evento, raw,
			fmt.Sprintf("webhook failed after 3 retries: %v", err), 3)
		return
	}
	log.Info().
		Str("pedido_id", body.PedidoID).
		Str("evento", payload.Evento).
		Msg("notificacion_worker: webhook delivered")
}

func (w *NotificacionWorker) notificarCliente(ctx context.Context, pedido *model.Pedido, evento string) {
	if pedido.Cliente == nil || pedido.Cliente.Email == nil || *pedido.Cliente.Email == "" {
		return
	}

	pdfPath, err := infra.GeneratePedidoPDF(pedido, w.pdfStoragePath)
	if err != nil {
		log.Warn().Err(err).Str("pedido_id", pedido.ID.String()).Msg("notificacion_worker: PDF generation failed")
		pdfPath = "" // email goes out without the attachment
	}

	asunto := "Su pedido fue despachado"
	cuerpo := "Su pedido salió del centro de distribución."
	if evento == EventoPedidoEntregado {
		asunto = "Su pedido fue entregado"
		cuerpo = "Su pedido fue entregado. Adjuntamos el resumen."
	}

	emailJob := EmailJobPayload{
		ToEmail: *pedido.Cliente.Email,
		Subject: asunto,
		Body:    fmt.Sprintf("%s\nTotal: $%s", cuerpo, pedido.MontoTotal.StringFixed(2)),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", *pedido.Cliente.Email).Msg("notificacion_worker: failed to enqueue email")
		return
	}
	log.Info().Str("email", *pedido.Cliente.Email).Str("evento", evento).Msg("notificacion_worker: email job enqueued")
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
