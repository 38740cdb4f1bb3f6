package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pedidos/internal/dto"
	"pedidos/internal/model"
	"pedidos/internal/repository"
	"pedidos/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubPedidoRepo is an in-memory PedidoRepository. Secuencia is assigned the
// way the DB does: monotonically, in insertion order, across all pedidos.
type stubPedidoRepo struct {
	pedidos map[uuid.UUID]*model.Pedido
	seq     int64
}

func newStubPedidoRepo() *stubPedidoRepo {
	return &stubPedidoRepo{pedidos: make(map[uuid.UUID]*model.Pedido)}
}

func (r *stubPedidoRepo) Create(_ context.Context, _ *gorm.DB, p *model.Pedido) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Items {
		if p.Items[i].ID == uuid.Nil {
			p.Items[i].ID = uuid.New()
		}
		p.Items[i].PedidoID = p.ID
	}
	p.CreatedAt = time.Now()
	r.pedidos[p.ID] = p
	return nil
}

func (r *stubPedidoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Pedido, error) {
	p, ok := r.pedidos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *stubPedidoRepo) FindByIDForUpdate(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.Pedido, error) {
	return r.FindByID(ctx, id)
}

func (r *stubPedidoRepo) Save(_ context.Context, _ *gorm.DB, _ *model.Pedido) error {
	// aggregates are shared pointers here — mutation is already visible
	return nil
}

func (r *stubPedidoRepo) AppendHistorial(_ context.Context, _ *gorm.DB, e *model.HistorialPedido) error {
	p, ok := r.pedidos[e.PedidoID]
	if !ok {
		return errors.New("pedido not found")
	}
	r.seq++
	e.Secuencia = r.seq
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	p.Historial = append(p.Historial, *e)
	return nil
}

func (r *stubPedidoRepo) SaveHistorialFechas(_ context.Context, _ *gorm.DB, e *model.HistorialPedido) error {
	p, ok := r.pedidos[e.PedidoID]
	if !ok {
		return errors.New("pedido not found")
	}
	for i := range p.Historial {
		if p.Historial[i].ID == e.ID {
			p.Historial[i].FechaEvento = e.FechaEvento
			p.Historial[i].FechaEventoFin = e.FechaEventoFin
			p.Historial[i].Observacion = e.Observacion
			return nil
		}
	}
	return errors.New("entrada not found")
}

func (r *stubPedidoRepo) List(_ context.Context, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var out []model.Pedido
	for _, p := range r.pedidos {
		if filter.EstadoGeneral != "" && string(p.EstadoGeneral) != filter.EstadoGeneral {
			continue
		}
		if filter.EstadoCredito != "" && string(p.EstadoCredito) != filter.EstadoCredito {
			continue
		}
		if filter.EstadoLogistico == "sin_enviar" && p.EstadoLogistico != nil {
			continue
		}
		if filter.EstadoLogistico != "" && filter.EstadoLogistico != "sin_enviar" &&
			(p.EstadoLogistico == nil || string(*p.EstadoLogistico) != filter.EstadoLogistico) {
			continue
		}
		// same semantics as the repo's DATE(created_at) comparison
		if filter.Fecha != "" && p.CreatedAt.Format("2006-01-02") != filter.Fecha {
			continue
		}
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubPedidoRepo) DB() *gorm.DB { return nil }

var _ repository.PedidoRepository = (*stubPedidoRepo)(nil)

type stubClienteRepo struct{ clientes map[uuid.UUID]*model.Cliente }

func (r *stubClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	c, ok := r.clientes[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

func (r *stubClienteRepo) Create(_ context.Context, c *model.Cliente) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.clientes[c.ID] = c
	return nil
}

var _ repository.ClienteRepository = (*stubClienteRepo)(nil)

type stubCanalRepo struct{ canales map[uuid.UUID]*model.CanalVenta }

func (r *stubCanalRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CanalVenta, error) {
	c, ok := r.canales[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return c, nil
}

func (r *stubCanalRepo) Create(_ context.Context, c *model.CanalVenta) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.canales[c.ID] = c
	return nil
}

var _ repository.CanalVentaRepository = (*stubCanalRepo)(nil)

type stubProductoRepo struct{ productos map[uuid.UUID]*model.Producto }

func (r *stubProductoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.productos[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (r *stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.productos[p.ID] = p
	return nil
}

var _ repository.ProductoRepository = (*stubProductoRepo)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	repo         *stubPedidoRepo
	pedidoSvc    service.PedidoService
	creditoSvc   service.CreditoService
	logisticaSvc service.LogisticaService

	cliente  *model.Cliente
	canal    *model.CanalVenta
	producto *model.Producto
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newStubPedidoRepo()
	clienteRepo := &stubClienteRepo{clientes: make(map[uuid.UUID]*model.Cliente)}
	canalRepo := &stubCanalRepo{canales: make(map[uuid.UUID]*model.CanalVenta)}
	productoRepo := &stubProductoRepo{productos: make(map[uuid.UUID]*model.Producto)}

	cliente := &model.Cliente{RazonSocial: "Distribuidora Test SpA", RUT: "76.000.000-0", Activo: true}
	require.NoError(t, clienteRepo.Create(context.Background(), cliente))
	canal := &model.CanalVenta{Nombre: "B2B", Activo: true}
	require.NoError(t, canalRepo.Create(context.Background(), canal))
	producto := &model.Producto{SKU: "SKU-001", Nombre: "Caja estándar 10u", PrecioVenta: decimal.NewFromFloat(1000), Activo: true}
	require.NoError(t, productoRepo.Create(context.Background(), producto))

	return &fixture{
		repo:         repo,
		pedidoSvc:    service.NewPedidoService(repo, clienteRepo, canalRepo, productoRepo, nil),
		creditoSvc:   service.NewCreditoService(repo, nil),
		logisticaSvc: service.NewLogisticaService(repo, nil),
		cliente:      cliente,
		canal:        canal,
		producto:     producto,
	}
}

// crearPedido creates a pedido with one line of 2 × producto.
func (f *fixture) crearPedido(t *testing.T) *dto.PedidoResponse {
	t.Helper()
	resp, err := f.pedidoSvc.Crear(context.Background(), nil, dto.CrearPedidoRequest{
		ClienteID:    f.cliente.ID.String(),
		CanalVentaID: f.canal.ID.String(),
		Items: []dto.ItemPedidoRequest{
			{ProductoID: f.producto.ID.String(), Cantidad: 2},
		},
		FechaEvento: time.Now(),
	})
	require.NoError(t, err)
	return resp
}

// aprobarCredito resolves the gate with a SAP number so logistics can start.
func (f *fixture) aprobarCredito(t *testing.T, pedidoID string) *dto.PedidoResponse {
	t.Helper()
	sap := "SAP-100"
	resp, err := f.creditoSvc.Decidir(context.Background(), uuid.MustParse(pedidoID), nil, dto.DecisionCreditoRequest{
		Decision:        "APROBAR",
		Justificacion:   "línea de crédito vigente",
		NumeroPedidoSAP: &sap,
		FechaEvento:     time.Now(),
	})
	require.NoError(t, err)
	return resp
}

// avanzar moves the pedido one phase forward.
func (f *fixture) avanzar(t *testing.T, pedidoID string, destino model.EstadoLogistico) *dto.PedidoResponse {
	t.Helper()
	resp, err := f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(pedidoID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: string(destino),
		FechaEvento:   time.Now(),
	})
	require.NoError(t, err)
	return resp
}

// cerrarFase closes the currently open PICKING/EMBALAJE entry.
func (f *fixture) cerrarFase(t *testing.T, pedidoID string) *dto.PedidoResponse {
	t.Helper()
	resp, err := f.logisticaSvc.CerrarFase(context.Background(), uuid.MustParse(pedidoID), dto.CierreFaseRequest{
		FechaEventoFin: time.Now(),
	})
	require.NoError(t, err)
	return resp
}

// contarHistorial counts entries per axis in a response.
func contarHistorial(resp *dto.PedidoResponse) map[string]int {
	counts := make(map[string]int)
	for _, h := range resp.Historial {
		counts[h.Tipo]++
	}
	return counts
}
