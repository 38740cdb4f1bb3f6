package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is the master-data reference a pedido points to. Maintenance of
// clients lives in the catalog service; here it is a read model only.
type Cliente struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RazonSocial string    `gorm:"not null"`
	RUT         string    `gorm:"type:varchar(20);uniqueIndex;column:rut"`
	// Email receives transition notifications (credit decision, despacho, entrega)
	Email     *string
	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
