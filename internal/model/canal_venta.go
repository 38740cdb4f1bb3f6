package model

import (
	"time"

	"github.com/google/uuid"
)

// CanalVenta identifies the sales channel a pedido entered through
// (portal B2B, importación Gmail, carga manual).
type CanalVenta struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre    string    `gorm:"uniqueIndex;not null"`
	Activo    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
}

// TableName overrides GORM's default pluralization (canal_ventas → canales_venta).
func (CanalVenta) TableName() string { return "canales_venta" }
