package repository

import (
	"context"

	"pedidos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CanalVentaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.CanalVenta, error)
	Create(ctx context.Context, c *model.CanalVenta) error
}

type canalVentaRepo struct{ db *gorm.DB }

func NewCanalVentaRepository(db *gorm.DB) CanalVentaRepository { return &canalVentaRepo{db: db} }

func (r *canalVentaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CanalVenta, error) {
	var c model.CanalVenta
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *canalVentaRepo) Create(ctx context.Context, c *model.CanalVenta) error {
	return r.db.WithContext(ctx).Create(c).Error
}
