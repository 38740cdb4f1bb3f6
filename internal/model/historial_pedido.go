package model

import (
	"time"

	"github.com/google/uuid"
)

// HistorialPedido is an append-only audit entry, one per state transition.
// Entries are NEVER deleted or re-typed — the only permitted in-place change
// is the administrative timestamp correction, which rewrites fecha_evento /
// fecha_evento_fin without altering labels or count.
type HistorialPedido struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID uuid.UUID `gorm:"type:uuid;index;not null"`
	// Secuencia preserves insertion order; "most recent entry" lookups use it,
	// never the caller-supplied timestamps.
	Secuencia int64         `gorm:"autoIncrement;uniqueIndex"`
	Tipo      TipoHistorial `gorm:"type:varchar(20);not null"`
	// EstadoAnterior is NULL on the first entry of an axis
	EstadoAnterior *string `gorm:"type:varchar(20)"`
	EstadoNuevo    string  `gorm:"type:varchar(20);not null"`
	FechaEvento    time.Time
	// FechaEventoFin closes duration-bearing phases (PICKING, EMBALAJE)
	FechaEventoFin *time.Time
	Observacion    string
	// UsuarioID is NULL for system-initiated transitions (e.g. auto-approval on import)
	UsuarioID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time
}

// TableName overrides GORM's default pluralization.
func (HistorialPedido) TableName() string { return "historial_pedidos" }

// Cerrada reports whether the entry already has an end timestamp.
func (h *HistorialPedido) Cerrada() bool { return h.FechaEventoFin != nil }
