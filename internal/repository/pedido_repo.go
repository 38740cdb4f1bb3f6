package repository

import (
	"context"

	"pedidos/internal/dto"
	"pedidos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PedidoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.Pedido) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	// FindByIDForUpdate takes the row lock that serializes concurrent
	// transitions on the same pedido (single-writer-per-order).
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Pedido, error)
	Save(ctx context.Context, tx *gorm.DB, p *model.Pedido) error
	AppendHistorial(ctx context.Context, tx *gorm.DB, e *model.HistorialPedido) error
	// SaveHistorialFechas persists the timestamp columns and the observation
	// of an existing entry (phase close and audit correction).
	SaveHistorialFechas(ctx context.Context, tx *gorm.DB, e *model.HistorialPedido) error
	List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) DB() *gorm.DB { return r.db }

func (r *pedidoRepo) Create(ctx context.Context, tx *gorm.DB, p *model.Pedido) error {
	return tx.WithContext(ctx).Create(p).Error
}

// preloadAll loads the full aggregate: items with product names, history in
// insertion order (secuencia, never the caller-supplied timestamps), and the
// master-data references.
func preloadAll(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items.Producto").
		Preload("Historial", func(db *gorm.DB) *gorm.DB { return db.Order("secuencia ASC") }).
		Preload("Cliente").
		Preload("CanalVenta")
}

func (r *pedidoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := preloadAll(r.db.WithContext(ctx)).First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	// FOR UPDATE applies to the pedidos row only; preloads run as separate
	// unlocked queries inside the same transaction.
	err := preloadAll(tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})).First(&p, id).Error
	return &p, err
}

func (r *pedidoRepo) Save(ctx context.Context, tx *gorm.DB, p *model.Pedido) error {
	// Associations are persisted through their own repo calls — Save here only
	// writes the pedido row (estados, números SAP, montos).
	return tx.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *pedidoRepo) AppendHistorial(ctx context.Context, tx *gorm.DB, e *model.HistorialPedido) error {
	return tx.WithContext(ctx).Create(e).Error
}

func (r *pedidoRepo) SaveHistorialFechas(ctx context.Context, tx *gorm.DB, e *model.HistorialPedido) error {
	return tx.WithContext(ctx).
		Model(&model.HistorialPedido{}).
		Where("id = ? AND pedido_id = ?", e.ID, e.PedidoID).
		Updates(map[string]interface{}{
			"fecha_evento":     e.FechaEvento,
			"fecha_evento_fin": e.FechaEventoFin,
			"observacion":      e.Observacion,
		}).Error
}

func (r *pedidoRepo) List(ctx context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var pedidos []model.Pedido
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Pedido{})

	if filter.EstadoGeneral != "" {
		q = q.Where("estado_general = ?", filter.EstadoGeneral)
	}
	if filter.EstadoCredito != "" {
		q = q.Where("estado_credito = ?", filter.EstadoCredito)
	}
	if filter.EstadoLogistico != "" {
		if filter.EstadoLogistico == "sin_enviar" {
			q = q.Where("estado_logistico IS NULL")
		} else {
			q = q.Where("estado_logistico = ?", filter.EstadoLogistico)
		}
	}
	if filter.Fecha != "" {
		q = q.Where("DATE(created_at) = ?", filter.Fecha)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := preloadAll(q).
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&pedidos).Error

	return pedidos, total, err
}
