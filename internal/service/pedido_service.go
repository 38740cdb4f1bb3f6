package service

import (
	"context"

	"pedidos/internal/apierror"
	"pedidos/internal/dto"
	"pedidos/internal/model"
	"pedidos/internal/repository"
	"pedidos/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PedidoService interface {
	Crear(ctx context.Context, usuarioID *uuid.UUID, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error)
	Listar(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error)
	CambiarEstadoGeneral(ctx context.Context, id uuid.UUID, usuarioID *uuid.UUID, req dto.CambioGeneralRequest) (*dto.PedidoResponse, error)
	CorregirHistorial(ctx context.Context, id uuid.UUID, req dto.CorreccionHistorialRequest) (*dto.PedidoResponse, error)
	// TransicionesDisponibles runs every guard read-only so the panel can
	// enable/disable actions without duplicating transition logic.
	TransicionesDisponibles(ctx context.Context, id uuid.UUID) (*dto.TransicionesResponse, error)
}

type pedidoService struct {
	repo         repository.PedidoRepository
	clienteRepo  repository.ClienteRepository
	canalRepo    repository.CanalVentaRepository
	productoRepo repository.ProductoRepository
	dispatcher   *worker.Dispatcher
}

func NewPedidoService(
	repo repository.PedidoRepository,
	clienteRepo repository.ClienteRepository,
	canalRepo repository.CanalVentaRepository,
	productoRepo repository.ProductoRepository,
	dispatcher *worker.Dispatcher,
) PedidoService {
	return &pedidoService{
		repo:         repo,
		clienteRepo:  clienteRepo,
		canalRepo:    canalRepo,
		productoRepo: productoRepo,
		dispatcher:   dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// Creates the aggregate in one transaction: resolve master data, compute the
// derived amounts, insert pedido + items, open the history with the NUEVO
// entry and — on the import path — run the credit auto-approval.

func (s *pedidoService) Crear(ctx context.Context, usuarioID *uuid.UUID, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error) {
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		return nil, apierror.Validation("cliente_id inválido")
	}
	canalID, err := uuid.Parse(req.CanalVentaID)
	if err != nil {
		return nil, apierror.Validation("canal_venta_id inválido")
	}

	cliente, err := s.clienteRepo.FindByID(ctx, clienteID)
	if err != nil {
		return nil, apierror.NotFound("cliente no encontrado")
	}
	if !cliente.Activo {
		return nil, apierror.Validation("el cliente está inactivo")
	}
	canal, err := s.canalRepo.FindByID(ctx, canalID)
	if err != nil {
		return nil, apierror.NotFound("canal de venta no encontrado")
	}
	if !canal.Activo {
		return nil, apierror.Validation("el canal de venta está inactivo")
	}

	// Resolve items outside the TX (pre-flight): product must exist and be
	// active; lines without an explicit price take the list price.
	items := make([]model.PedidoItem, 0, len(req.Items))
	for _, item := range req.Items {
		pid, err := uuid.Parse(item.ProductoID)
		if err != nil {
			return nil, apierror.Validation("producto_id inválido: " + item.ProductoID)
		}
		prod, err := s.productoRepo.FindByID(ctx, pid)
		if err != nil {
			return nil, apierror.NotFound("producto no encontrado: " + item.ProductoID)
		}
		if !prod.Activo {
			return nil, apierror.Validation("el producto " + prod.Nombre + " está inactivo")
		}
		precio := prod.PrecioVenta
		if item.PrecioUnitario != nil {
			if item.PrecioUnitario.IsNegative() {
				return nil, apierror.Validation("el precio unitario no puede ser negativo")
			}
			precio = *item.PrecioUnitario
		}
		items = append(items, model.PedidoItem{
			ProductoID:     pid,
			Cantidad:       item.Cantidad,
			PrecioUnitario: precio,
		})
	}

	pedido := &model.Pedido{
		CodigoOrigen:  req.CodigoOrigen,
		ClienteID:     clienteID,
		CanalVentaID:  canalID,
		EstadoGeneral: model.GeneralNuevo,
		EstadoCredito: model.CreditoPendiente,
		Items:         items,
	}
	pedido.RecalcularMontos()

	autoAprobado := false
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, pedido); err != nil {
			return err
		}

		apertura := &model.HistorialPedido{
			PedidoID:    pedido.ID,
			Tipo:        model.HistorialGeneral,
			EstadoNuevo: string(model.GeneralNuevo),
			FechaEvento: req.FechaEvento,
			Observacion: "Pedido creado",
			UsuarioID:   usuarioID,
		}
		if err := s.repo.AppendHistorial(ctx, tx, apertura); err != nil {
			return err
		}

		if req.AutoAprobar {
			entradas, aerr := aplicarDecisionCredito(pedido, model.DecisionAprobar,
				"Aprobación automática en importación", req.NumeroPedidoSAP, req.FechaEvento, nil)
			if aerr != nil {
				return aerr
			}
			for _, e := range entradas {
				if err := s.repo.AppendHistorial(ctx, tx, e); err != nil {
					return err
				}
			}
			if err := s.repo.Save(ctx, tx, pedido); err != nil {
				return err
			}
			autoAprobado = true
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil && autoAprobado {
		_ = s.dispatcher.EnqueueNotificacion(ctx, worker.NotificacionJobPayload{
			PedidoID: pedido.ID.String(),
			Evento:   worker.EventoCreditoAprobado,
		})
	}

	return cargarRespuesta(ctx, s.repo, pedido.ID)
}

func (s *pedidoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error) {
	return cargarRespuesta(ctx, s.repo, id)
}

// Listar returns a paginated list filtered by the three status axes and date.
func (s *pedidoService) Listar(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	pedidos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		items = append(items, *pedidoToResponse(&pedidos[i]))
	}
	return &dto.PedidoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

// ── CambiarEstadoGeneral ──────────────────────────────────────────────────────
// The overlay: RETENIDO/EN_PROCESO toggle, CANCELADO terminal.

func (s *pedidoService) CambiarEstadoGeneral(ctx context.Context, id uuid.UUID, usuarioID *uuid.UUID, req dto.CambioGeneralRequest) (*dto.PedidoResponse, error) {
	destino := model.EstadoGeneral(req.EstadoDestino)

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}
		if aerr := p.ValidarCambioGeneral(destino); aerr != nil {
			return aerr
		}

		anterior := string(p.EstadoGeneral)
		p.EstadoGeneral = destino

		entrada := &model.HistorialPedido{
			PedidoID:       p.ID,
			Tipo:           model.HistorialGeneral,
			EstadoAnterior: &anterior,
			EstadoNuevo:    string(destino),
			FechaEvento:    req.FechaEvento,
			Observacion:    req.Observacion,
			UsuarioID:      usuarioID,
		}
		if err := s.repo.AppendHistorial(ctx, tx, entrada); err != nil {
			return err
		}
		return s.repo.Save(ctx, tx, p)
	})
	if txErr != nil {
		return nil, txErr
	}
	return cargarRespuesta(ctx, s.repo, id)
}

// ── CorregirHistorial ─────────────────────────────────────────────────────────
// Administrative audit correction: rewrites timestamps of existing entries in
// bulk. Never changes entry count, type, or state labels.

func (s *pedidoService) CorregirHistorial(ctx context.Context, id uuid.UUID, req dto.CorreccionHistorialRequest) (*dto.PedidoResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}

		porID := make(map[uuid.UUID]*model.HistorialPedido, len(p.Historial))
		for i := range p.Historial {
			porID[p.Historial[i].ID] = &p.Historial[i]
		}

		for _, corr := range req.Correcciones {
			entradaID, err := uuid.Parse(corr.EntradaID)
			if err != nil {
				return apierror.Validation("entrada_id inválido: " + corr.EntradaID)
			}
			entrada, ok := porID[entradaID]
			if !ok {
				return apierror.NotFound("la entrada " + corr.EntradaID + " no pertenece al pedido")
			}
			entrada.FechaEvento = corr.FechaEvento
			if corr.FechaEventoFin != nil {
				entrada.FechaEventoFin = corr.FechaEventoFin
			}
			if err := s.repo.SaveHistorialFechas(ctx, tx, entrada); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return cargarRespuesta(ctx, s.repo, id)
}

// ── TransicionesDisponibles ───────────────────────────────────────────────────

// observacionDryRun satisfies the minimum-length input checks so that the
// dry-run reports the state-machine verdict, not an input artifact. The SAP
// placeholder plays the same role for the approval's number requirement.
const observacionDryRun = "validación previa"

var numeroSAPDryRun = "000000"

func (s *pedidoService) TransicionesDisponibles(ctx context.Context, id uuid.UUID) (*dto.TransicionesResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("pedido no encontrado")
	}

	acciones := []dto.AccionDisponible{
		accion("aprobar_credito", nil, p.ValidarDecisionCredito(model.DecisionAprobar, observacionDryRun, &numeroSAPDryRun)),
		accion("rechazar_credito", nil, p.ValidarDecisionCredito(model.DecisionRechazar, observacionDryRun, nil)),
	}

	if siguiente, ok := model.SiguienteLogistico(p.EstadoLogistico); ok {
		dest := string(siguiente)
		acciones = append(acciones, accion("avanzar_logistica", &dest, p.ValidarAvanceLogistico(siguiente)))
	}

	acciones = append(acciones,
		accion("cerrar_fase", nil, p.ValidarCierreFase()),
		accion("marcar_facturado", nil, p.ValidarFacturacion(observacionDryRun)),
		accion("marcar_entregado", nil, p.ValidarEntrega(observacionDryRun)),
		accion("retener", nil, p.ValidarCambioGeneral(model.GeneralRetenido)),
		accion("reactivar", nil, p.ValidarCambioGeneral(model.GeneralEnProceso)),
		accion("cancelar", nil, p.ValidarCambioGeneral(model.GeneralCancelado)),
	)

	return &dto.TransicionesResponse{PedidoID: p.ID.String(), Acciones: acciones}, nil
}

func accion(nombre string, destino *string, aerr *apierror.Error) dto.AccionDisponible {
	a := dto.AccionDisponible{Accion: nombre, Destino: destino, Permitida: aerr == nil}
	if aerr != nil {
		a.Motivo = &dto.Motivo{Kind: string(aerr.Kind), Detail: aerr.Detail}
	}
	return a
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// cargarRespuesta reloads the aggregate after commit so the response carries
// the DB-generated fields (entry ids, secuencia) of freshly appended history.
func cargarRespuesta(ctx context.Context, repo repository.PedidoRepository, id uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, apierror.NotFound("pedido no encontrado")
	}
	return pedidoToResponse(p), nil
}

func pedidoToResponse(p *model.Pedido) *dto.PedidoResponse {
	items := make([]dto.ItemPedidoResponse, 0, len(p.Items))
	for _, item := range p.Items {
		nombre := ""
		if item.Producto != nil {
			nombre = item.Producto.Nombre
		}
		items = append(items, dto.ItemPedidoResponse{
			ProductoID:     item.ProductoID.String(),
			Producto:       nombre,
			Cantidad:       item.Cantidad,
			PrecioUnitario: item.PrecioUnitario,
			Subtotal:       item.Subtotal,
		})
	}

	historial := make([]dto.HistorialEntryResponse, 0, len(p.Historial))
	for _, h := range p.Historial {
		var usuario *string
		if h.UsuarioID != nil {
			u := h.UsuarioID.String()
			usuario = &u
		}
		historial = append(historial, dto.HistorialEntryResponse{
			ID:             h.ID.String(),
			Tipo:           string(h.Tipo),
			EstadoAnterior: h.EstadoAnterior,
			EstadoNuevo:    h.EstadoNuevo,
			FechaEvento:    h.FechaEvento,
			FechaEventoFin: h.FechaEventoFin,
			Observacion:    h.Observacion,
			UsuarioID:      usuario,
		})
	}

	clienteNombre := ""
	if p.Cliente != nil {
		clienteNombre = p.Cliente.RazonSocial
	}
	var logistico *string
	if p.EstadoLogistico != nil {
		l := string(*p.EstadoLogistico)
		logistico = &l
	}

	return &dto.PedidoResponse{
		ID:               p.ID.String(),
		CodigoOrigen:     p.CodigoOrigen,
		NumeroPedidoSAP:  p.NumeroPedidoSAP,
		NumeroFacturaSAP: p.NumeroFacturaSAP,
		FacturaManual:    p.FacturaManual,
		ClienteID:        p.ClienteID.String(),
		Cliente:          clienteNombre,
		CanalVentaID:     p.CanalVentaID.String(),
		EstadoGeneral:    string(p.EstadoGeneral),
		EstadoCredito:    string(p.EstadoCredito),
		EstadoLogistico:  logistico,
		MontoNeto:        p.MontoNeto,
		MontoImpuestos:   p.MontoImpuestos,
		MontoTotal:       p.MontoTotal,
		Items:            items,
		Historial:        historial,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
