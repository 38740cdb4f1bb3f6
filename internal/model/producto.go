package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is the catalog reference for pedido line items. Catalog maintenance
// is out of scope here; the lifecycle core only resolves names and list prices
// when a line arrives without an explicit unit price.
type Producto struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SKU         string          `gorm:"type:varchar(40);uniqueIndex;not null;column:sku"`
	Nombre      string          `gorm:"not null"`
	PrecioVenta decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Activo      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
