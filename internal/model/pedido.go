package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TasaIVA is the tax rate applied over monto_neto (19%).
var TasaIVA = decimal.NewFromFloat(0.19)

// Pedido is the order aggregate. It owns its items and history entries and is
// the sole mutator of the three status axes — services always load it inside
// a transaction with a row lock before touching any of them.
type Pedido struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// CodigoOrigen is the external B2B reference of imported orders
	CodigoOrigen *string `gorm:"type:varchar(60);index"`
	// NumeroPedidoSAP becomes mandatory once credit is approved
	NumeroPedidoSAP  *string `gorm:"type:varchar(30);column:numero_pedido_sap"`
	NumeroFacturaSAP *string `gorm:"type:varchar(30);column:numero_factura_sap"`
	FacturaManual    bool    `gorm:"not null;default:false"`

	ClienteID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CanalVentaID uuid.UUID `gorm:"type:uuid;not null"`

	EstadoGeneral EstadoGeneral `gorm:"type:varchar(20);not null;default:'NUEVO'"`
	EstadoCredito EstadoCredito `gorm:"type:varchar(20);not null;default:'PENDIENTE'"`
	// EstadoLogistico is NULL until the pedido is sent to the warehouse
	EstadoLogistico *EstadoLogistico `gorm:"type:varchar(20)"`

	// Montos are derived: neto = Σ subtotales, impuestos = neto × 19%, total = neto + impuestos.
	// Stored for query convenience but always recomputed through RecalcularMontos.
	MontoNeto      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoImpuestos decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MontoTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	Cliente    *Cliente    `gorm:"foreignKey:ClienteID"`
	CanalVenta *CanalVenta `gorm:"foreignKey:CanalVentaID"`

	Items     []PedidoItem      `gorm:"foreignKey:PedidoID"`
	Historial []HistorialPedido `gorm:"foreignKey:PedidoID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PedidoItem is one order line. Subtotal = precio_unitario × cantidad.
type PedidoItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2);not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// RecalcularMontos recomputes the derived amounts from the current items.
// Must be called after every line-item mutation so that the invariant
// total = neto + impuestos always holds.
func (p *Pedido) RecalcularMontos() {
	neto := decimal.Zero
	for i := range p.Items {
		p.Items[i].Subtotal = p.Items[i].PrecioUnitario.Mul(decimal.NewFromInt(int64(p.Items[i].Cantidad)))
		neto = neto.Add(p.Items[i].Subtotal)
	}
	p.MontoNeto = neto
	p.MontoImpuestos = neto.Mul(TasaIVA).Round(2)
	p.MontoTotal = p.MontoNeto.Add(p.MontoImpuestos)
}

// UltimaEntradaLogistica returns the most recent LOGISTICO entry whose new
// state matches fase, scanning in reverse insertion order. Storage order is
// authoritative here — event timestamps are caller-supplied and not trusted
// for ranking.
func (p *Pedido) UltimaEntradaLogistica(fase EstadoLogistico) *HistorialPedido {
	for i := len(p.Historial) - 1; i >= 0; i-- {
		e := &p.Historial[i]
		if e.Tipo == HistorialLogistico && e.EstadoNuevo == string(fase) {
			return e
		}
	}
	return nil
}
