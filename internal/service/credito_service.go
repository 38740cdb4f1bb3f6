package service

import (
	"context"
	"time"

	"pedidos/internal/apierror"
	"pedidos/internal/dto"
	"pedidos/internal/model"
	"pedidos/internal/repository"
	"pedidos/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditoService interface {
	// Decidir resolves the credit gate of a PENDIENTE pedido. Approval
	// requires the SAP order number (supplied here if not already set).
	Decidir(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.DecisionCreditoRequest) (*dto.PedidoResponse, error)
}

type creditoService struct {
	repo       repository.PedidoRepository
	dispatcher *worker.Dispatcher
}

func NewCreditoService(repo repository.PedidoRepository, dispatcher *worker.Dispatcher) CreditoService {
	return &creditoService{repo: repo, dispatcher: dispatcher}
}

func (s *creditoService) Decidir(ctx context.Context, pedidoID uuid.UUID, usuarioID *uuid.UUID, req dto.DecisionCreditoRequest) (*dto.PedidoResponse, error) {
	var pedido *model.Pedido

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.FindByIDForUpdate(ctx, tx, pedidoID)
		if err != nil {
			return apierror.NotFound("pedido no encontrado")
		}

		entradas, aerr := aplicarDecisionCredito(p, model.DecisionCredito(req.Decision), req.Justificacion, req.NumeroPedidoSAP, req.FechaEvento, usuarioID)
		if aerr != nil {
			return aerr
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

	// Fire & forget — the notification never mutates order state
	if s.dispatcher != nil {
		evento := worker.EventoCreditoAprobado
		if pedido.EstadoCredito == model.CreditoRechazado {
			evento = worker.EventoCreditoRechazado
		}
		_ = s.dispatcher.EnqueueNotificacion(ctx, worker.NotificacionJobPayload{
			PedidoID: pedido.ID.String(),
			Evento:   evento,
		})
	}

	return cargarRespuesta(ctx, s.repo, pedidoID)
}

// aplicarDecisionCredito mutates the aggregate for a credit decision and
// returns the history entries to append. Shared by the credit endpoint and
// the auto-approval path of imported orders — one implementation of the gate.
func aplicarDecisionCredito(p *model.Pedido, decision model.DecisionCredito, justificacion string, numeroSAP *string, fecha time.Time, usuarioID *uuid.UUID) ([]*model.HistorialPedido, *apierror.Error) {
	if aerr := p.ValidarDecisionCredito(decision, justificacion, numeroSAP); aerr != nil {
		return nil, aerr
	}

	anterior := string(p.EstadoCredito)
	if decision == model.DecisionAprobar {
		p.EstadoCredito = model.CreditoAprobado
		if numeroSAP != nil && *numeroSAP != "" {
			p.NumeroPedidoSAP = numeroSAP
		}
	} else {
		p.EstadoCredito = model.CreditoRechazado
	}

	entradas := []*model.HistorialPedido{{
		PedidoID:       p.ID,
		Tipo:           model.HistorialCredito,
		EstadoAnterior: &anterior,
		EstadoNuevo:    string(p.EstadoCredito),
		FechaEvento:    fecha,
		Observacion:    justificacion,
		UsuarioID:      usuarioID,
	}}

	// The first credit decision also moves the overlay out of NUEVO: the
	// pedido is now being processed. System-initiated, hence no actor.
	if p.EstadoGeneral == model.GeneralNuevo {
		generalAnterior := string(p.EstadoGeneral)
		p.EstadoGeneral = model.GeneralEnProceso
		entradas = append(entradas, &model.HistorialPedido{
			PedidoID:       p.ID,
			Tipo:           model.HistorialGeneral,
			EstadoAnterior: &generalAnterior,
			EstadoNuevo:    string(model.GeneralEnProceso),
			FechaEvento:    fecha,
			Observacion:    "Inicio de procesamiento por decisión de crédito",
		})
	}

	return entradas, nil
}
