package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookPayload is posted to the origin B2B system on every notified
// transition so it can mirror the pedido state on its side.
type WebhookPayload struct {
	PedidoID        string  `json:"pedido_id"`
	CodigoOrigen    *string `json:"codigo_origen,omitempty"`
	Evento          string  `json:"evento"`
	EstadoGeneral   string  `json:"estado_general"`
	EstadoCredito   string  `json:"estado_credito"`
	EstadoLogistico *string `json:"estado_logistico,omitempty"`
	FechaEnvio      string  `json:"fecha_envio"` // ISO 8601
}

// WebhookClient notifies the external origin system over HTTP. All calls go
// through a circuit breaker so a dead receiver cannot pile up worker
// goroutines waiting on timeouts.
type WebhookClient struct {
	url        string
	httpClient *http.Client
	cb         *CircuitBreaker
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         NewCircuitBreaker(DefaultCBConfig()),
	}
}

// Enabled reports whether a webhook URL was configured.
func (c *WebhookClient) Enabled() bool { return c != nil && c.url != "" }

// CBState exposes the circuit breaker state for the health endpoint.
func (c *WebhookClient) CBState() CBState { return c.cb.State() }

// Notificar posts the payload through the circuit breaker.
func (c *WebhookClient) Notificar(ctx context.Context, payload WebhookPayload) error {
	if !c.Enabled() {
		return nil
	}
	return c.cb.Execute(func() error {
		return c.post(ctx, payload)
	})
}

func (c *WebhookClient) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: receiver unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: receiver returned %d", resp.StatusCode)
	}
	return nil
}
