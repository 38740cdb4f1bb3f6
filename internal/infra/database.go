package infra

import (
	"fmt"

	"pedidos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that
// AutoMigrate cannot express (partial indexes, check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies the schema. Shared with integration tests so they run
// against the exact production DDL.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Cliente{},
		&model.CanalVenta{},
		&model.Producto{},
		&model.Pedido{},
		&model.PedidoItem{},
		&model.HistorialPedido{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM AutoMigrate cannot fully
// handle on its own. Each statement uses IF NOT EXISTS semantics so re-running
// on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// The history is always read in insertion order for one pedido
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_historial_pedido_secuencia') THEN
		    CREATE INDEX idx_historial_pedido_secuencia
		        ON historial_pedidos (pedido_id, secuencia);
		  END IF;
		END $$`,
		// Panel work queue: pending-credit pedidos, newest first
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_pedidos_credito_pendiente') THEN
		    CREATE INDEX idx_pedidos_credito_pendiente
		        ON pedidos (created_at DESC)
		        WHERE estado_credito = 'PENDIENTE';
		  END IF;
		END $$`,
		// Derived-amount invariant enforced at the DB as a last line of defense
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_pedidos_total') THEN
		    ALTER TABLE pedidos
		      ADD CONSTRAINT chk_pedidos_total
		      CHECK (monto_total = monto_neto + monto_impuestos);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
