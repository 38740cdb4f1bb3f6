package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// PedidoFilter is bound from the query string of GET /v1/pedidos.
type PedidoFilter struct {
	EstadoGeneral   string `form:"estado_general"`
	EstadoCredito   string `form:"estado_credito"`
	EstadoLogistico string `form:"estado_logistico"`
	Fecha           string `form:"fecha"` // YYYY-MM-DD sobre created_at
	Page            int    `form:"page,default=1"   validate:"min=1"`
	Limit           int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PedidoListResponse struct {
	Data  []PedidoResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemPedidoRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
	// PrecioUnitario: when absent the list price of the product is used
	// (imported B2B orders carry their own negotiated price).
	PrecioUnitario *decimal.Decimal `json:"precio_unitario" validate:"omitempty,min=0"`
}

type CrearPedidoRequest struct {
	ClienteID    string              `json:"cliente_id"     validate:"required,uuid"`
	CanalVentaID string              `json:"canal_venta_id" validate:"required,uuid"`
	Items        []ItemPedidoRequest `json:"items"          validate:"required,min=1,dive"`
	CodigoOrigen *string             `json:"codigo_origen"`
	// AutoAprobar runs the credit approval in the same transaction; requires
	// numero_pedido_sap (import path of pre-approved orders).
	AutoAprobar     bool      `json:"auto_aprobar"`
	NumeroPedidoSAP *string   `json:"numero_pedido_sap"`
	FechaEvento     time.Time `json:"fecha_evento" validate:"required"`
}

type DecisionCreditoRequest struct {
	Decision        string    `json:"decision"          validate:"required,oneof=APROBAR RECHAZAR"`
	Justificacion   string    `json:"justificacion"     validate:"required,min=5"`
	NumeroPedidoSAP *string   `json:"numero_pedido_sap"`
	FechaEvento     time.Time `json:"fecha_evento"      validate:"required"`
}

type AvanceLogisticoRequest struct {
	EstadoDestino string    `json:"estado_destino" validate:"required"`
	FechaEvento   time.Time `json:"fecha_evento"   validate:"required"`
	Observacion   string    `json:"observacion"`
}

type CierreFaseRequest struct {
	FechaEventoFin time.Time `json:"fecha_evento_fin" validate:"required"`
	Observacion    string    `json:"observacion"`
}

type FacturacionRequest struct {
	FacturaManual    bool      `json:"factura_manual"`
	NumeroFacturaSAP *string   `json:"numero_factura_sap"`
	Observacion      string    `json:"observacion"  validate:"required,min=5"`
	FechaEvento      time.Time `json:"fecha_evento" validate:"required"`
}

type EntregaRequest struct {
	FechaEvento time.Time `json:"fecha_evento" validate:"required"`
	Observacion string    `json:"observacion"  validate:"required,min=5"`
}

type CambioGeneralRequest struct {
	EstadoDestino string    `json:"estado_destino" validate:"required,oneof=EN_PROCESO RETENIDO CANCELADO"`
	FechaEvento   time.Time `json:"fecha_evento"   validate:"required"`
	Observacion   string    `json:"observacion"`
}

type RegistroNumeroSAPRequest struct {
	NumeroPedidoSAP string `json:"numero_pedido_sap" validate:"required"`
}

// CorreccionEntrada rewrites the timestamps of one existing history entry.
// fecha_evento_fin absent = unchanged.
type CorreccionEntrada struct {
	EntradaID      string     `json:"entrada_id"       validate:"required,uuid"`
	FechaEvento    time.Time  `json:"fecha_evento"     validate:"required"`
	FechaEventoFin *time.Time `json:"fecha_evento_fin"`
}

type CorreccionHistorialRequest struct {
	Correcciones []CorreccionEntrada `json:"correcciones" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemPedidoResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type HistorialEntryResponse struct {
	ID             string     `json:"id"`
	Tipo           string     `json:"tipo"`
	EstadoAnterior *string    `json:"estado_anterior"`
	EstadoNuevo    string     `json:"estado_nuevo"`
	FechaEvento    time.Time  `json:"fecha_evento"`
	FechaEventoFin *time.Time `json:"fecha_evento_fin"`
	Observacion    string     `json:"observacion"`
	UsuarioID      *string    `json:"usuario_id"`
}

// PedidoResponse is the full order snapshot returned by every operation so
// the panel can re-render without a second fetch.
type PedidoResponse struct {
	ID               string                   `json:"id"`
	CodigoOrigen     *string                  `json:"codigo_origen"`
	NumeroPedidoSAP  *string                  `json:"numero_pedido_sap"`
	NumeroFacturaSAP *string                  `json:"numero_factura_sap"`
	FacturaManual    bool                     `json:"factura_manual"`
	ClienteID        string                   `json:"cliente_id"`
	Cliente          string                   `json:"cliente"`
	CanalVentaID     string                   `json:"canal_venta_id"`
	EstadoGeneral    string                   `json:"estado_general"`
	EstadoCredito    string                   `json:"estado_credito"`
	EstadoLogistico  *string                  `json:"estado_logistico"`
	MontoNeto        decimal.Decimal          `json:"monto_neto"`
	MontoImpuestos   decimal.Decimal          `json:"monto_impuestos"`
	MontoTotal       decimal.Decimal          `json:"monto_total"`
	Items            []ItemPedidoResponse     `json:"items"`
	Historial        []HistorialEntryResponse `json:"historial"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// ─── Dry-run / transiciones ──────────────────────────────────────────────────

// AccionDisponible describes one action of the panel and whether it would be
// accepted right now; Motivo carries the blocking error when not.
type AccionDisponible struct {
	Accion    string  `json:"accion"`
	Destino   *string `json:"destino,omitempty"`
	Permitida bool    `json:"permitida"`
	Motivo    *Motivo `json:"motivo,omitempty"`
}

type Motivo struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type TransicionesResponse struct {
	PedidoID string             `json:"pedido_id"`
	Acciones []AccionDisponible `json:"acciones"`
}
