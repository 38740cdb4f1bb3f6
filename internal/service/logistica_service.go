package service

import (
	"context"

	"pedidos/internal/apierror"
	"pedidos/internal/dto"
	"pedidos/internal/model"
	"pedidos/internal/repository"
	"pedidos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type LogisticaService interface {
	// Avanzar moves the pedido to the immediate successor phase. No skipping.
	Avanzar(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.AvanceLogisticoRequest) (*dto.PedidoResponse, error)
	// CerrarFase records fecha_evento_fin on the open PICKING/EMBALAJE entry.
	CerrarFase(ctx context.Context, pedidoID uuid.UUID, req dto.CierreFaseRequest) (*dto.PedidoResponse, error)
	// MarcarFacturado registers the SAP invoice number and/or the manual
	// invoice flag; required before ANDEN → DESPACHADO.
	MarcarFacturado(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.FacturacionRequest) (*dto.PedidoResponse, error)
	// MarcarEntregado closes the pipeline: DESPACHADO → ENTREGADO.
	MarcarEntregado(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.EntregaRequest) (*dto.PedidoResponse, error)
	// RegistrarNumeroSAP is the out-of-band correction for an approved pedido
	// that was left without its SAP order number.
	RegistrarNumeroSAP(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.RegistroNumeroSAPRequest) (*dto.PedidoResponse, error)
}

type logisticaService struct {
	repo       repository.PedidoRepository
	dispatcher *worker.Dispatcher
}

func NewLogisticaService(repo repository.PedidoRepository, dispatcher *worker.Dispatcher) LogisticaService {
	return &logisticaService{repo: repo, dispatcher: dispatcher}
}

// estadosLogisticos validates request input against the known phase names.
var estadosLogisticos = map[model.EstadoLogistico]bool{
	model.LogisticoPendienteWMS: true,
	model.LogisticoCreado:       true,
	model.LogisticoLiberado:     true,
	model.LogisticoPicking:      true,
	model.LogisticoEmbalaje:     true,
	model.LogisticoAnden:        true,
	model.LogisticoDespachado:   true,
	model.LogisticoEntregado:    true,
}

func (s *logisticaService) Avanzar(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.AvanceLogisticoRequest) (*dto.PedidoResponse, error) {
	destino := model.EstadoLogistico(req.EstadoDestino)
	if !estadosLogisticos[destino] {
		return nil, apierror.Validation("estado logístico desconocido: " + req.EstadoDestino)
	}

	var pedido *model.Pedido
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, pedidoID)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}
		if aerr := p.ValidarAvanceLogistico(destino); aerr != nil {
			return aerr
		}

		var anterior *string
		if p.EstadoLogistico != nil {
			prev := string(*p.EstadoLogistico)
			anterior = &prev
		}
		p.EstadoLogistico = &destino

		entrada := &model.HistorialPedido{
			PedidoID:       p.ID,
			Tipo:           model.HistorialLogistico,
			EstadoAnterior: anterior,
			EstadoNuevo:    string(destino),
			FechaEvento:    req.FechaEvento,
			Observacion:    req.Observacion,
			UsuarioID:      usuarioID,
		}
		if err := s.repo.AppendHistorial(ctx, tx, entrada); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, p); err != nil {
			return err
		}
		pedido = p
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil && destino == model.LogisticoDespachado {
		_ = s.dispatcher.EnqueueNotificacion(ctx, worker.NotificacionJobPayload{
			PedidoID: pedido.ID.String(),
			Evento:   worker.EventoPedidoDespachado,
		})
	}

	return cargarRespuesta(ctx, s.repo, pedidoID)
}

func (s *logisticaService) CerrarFase(ctx context.Context, pedidoID uuid.UUID, req dto.CierreFaseRequest) (*dto.PedidoResponse, error) {
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, pedidoID)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}
		if aerr := p.ValidarCierreFase(); aerr != nil {
			return aerr
		}

		entrada := p.UltimaEntradaLogistica(*p.EstadoLogistico)
		fin := req.FechaEventoFin
		entrada.FechaEventoFin = &fin
		if req.Observacion != "" {
			if entrada.Observacion != "" {
				entrada.Observacion += " | " + req.Observacion
			} else {
				entrada.Observacion = req.Observacion
			}
		}
		if err := s.repo.SaveHistorialFechas(ctx, tx, entrada); err != nil {
			return err
		}
		// estado_logistico does not change — the phase stays current until the
		// next advance.
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return cargarRespuesta(ctx, s.repo, pedidoID)
}

func (s *logisticaService) MarcarFacturado(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.FacturacionRequest) (*dto.PedidoResponse, error) {
	if !req.FacturaManual && (req.NumeroFacturaSAP == nil || *req.NumeroFacturaSAP == "") {
		return nil, apierror.Validation("debe indicar factura manual o número de factura SAP")
	}

	var pedido *model.Pedido
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, pedidoID)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}
		if aerr := p.ValidarFacturacion(req.Observacion); aerr != nil {
			return aerr
		}

		if req.FacturaManual {
			p.FacturaManual = true
		}
		if req.NumeroFacturaSAP != nil && *req.NumeroFacturaSAP != "" {
			p.NumeroFacturaSAP = req.NumeroFacturaSAP
		}
		if err := s.repo.Save(ctx, tx, p); err != nil {
			return err
		}
		pedido = p
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Metadata patch, not a transition — audited through the log, not the
	// pedido history.
	actor := "sistema"
	if usuarioID != nil {
		actor = usuarioID.String()
	}
	log.Info().
		Str("pedido_id", pedido.ID.String()).
		Bool("factura_manual", pedido.FacturaManual).
		Str("observacion", req.Observacion).
		Str("usuario", actor).
		Msg("facturación registrada")

	return cargarRespuesta(ctx, s.repo, pedidoID)
}

func (s *logisticaService) MarcarEntregado(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.EntregaRequest) (*dto.PedidoResponse, error) {
	var pedido *model.Pedido
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, pedidoID)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}
		if aerr := p.ValidarEntrega(req.Observacion); aerr != nil {
			return aerr
		}

		anterior := string(*p.EstadoLogistico)
		entregado := model.LogisticoEntregado
		p.EstadoLogistico = &entregado

		entradas := []*model.HistorialPedido{{
			PedidoID:       p.ID,
			Tipo:           model.HistorialLogistico,
			EstadoAnterior: &anterior,
			EstadoNuevo:    string(model.LogisticoEntregado),
			FechaEvento:    req.FechaEvento,
			Observacion:    req.Observacion,
			UsuarioID:      usuarioID,
		}}

		// Delivery completes the general overlay as well
		if p.EstadoGeneral == model.GeneralEnProceso {
			generalAnterior := string(p.EstadoGeneral)
			p.EstadoGeneral = model.GeneralCompletado
			entradas = append(entradas, &model.HistorialPedido{
				PedidoID:       p.ID,
				Tipo:           model.HistorialGeneral,
				EstadoAnterior: &generalAnterior,
				EstadoNuevo:    string(model.GeneralCompletado),
				FechaEvento:    req.FechaEvento,
				Observacion:    "Pedido entregado",
			})
		}

		for _, e := range entradas {
			if err := s.repo.AppendHistorial(ctx, tx, e); err != nil {
				return err
			}
		}
		if err := s.repo.Save(ctx, tx, p); err != nil {
			return err
		}
		pedido = p
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.EnqueueNotificacion(ctx, worker.NotificacionJobPayload{
			PedidoID: pedido.ID.String(),
			Evento:   worker.EventoPedidoEntregado,
		})
	}

	return cargarRespuesta(ctx, s.repo, pedidoID)
}

func (s *logisticaService) RegistrarNumeroSAP(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.RegistroNumeroSAPRequest) (*dto.PedidoResponse, error) {
	var pedido *model.Pedido
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, pedidoID)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}
		if aerr := p.ValidarRegistroNumeroSAP(req.NumeroPedidoSAP); aerr != nil {
			return aerr
		}
		numero := req.NumeroPedidoSAP
		p.NumeroPedidoSAP = &numero
		if err := s.repo.Save(ctx, tx, p); err != nil {
			return err
		}
		pedido = p
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	// Out-of-band metadata patch: no history entry, but it does get audited.
	actor := "sistema"
	if usuarioID != nil {
		actor = usuarioID.String()
	}
	log.Info().
		Str("pedido_id", pedido.ID.String()).
		Str("numero_pedido_sap", req.NumeroPedidoSAP).
		Str("usuario", actor).
		Msg("número de pedido SAP registrado fuera de banda")

	return cargarRespuesta(ctx, s.repo, pedidoID)
}
