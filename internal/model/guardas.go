package model

// Guardas puras del ciclo de vida. Cada función decide si una transición es
// legal desde el snapshot actual del pedido y devuelve el error tipado que la
// bloquea, sin mutar nada. Los services llaman exactamente estas funciones
// dentro de la transacción antes de confirmar, y el endpoint de dry-run las
// llama en modo lectura — una sola fuente de verdad para ambos caminos.

import (
	"fmt"

	"pedidos/internal/apierror"
)

// MinJustificacion is the minimum length for justifications and observations
// attached to a transition.
const MinJustificacion = 5

// validarOperable blocks every credit/logistics action while the general
// overlay suspends (RETENIDO) or terminates (CANCELADO) the pedido.
func (p *Pedido) validarOperable() *apierror.Error {
	switch p.EstadoGeneral {
	case GeneralRetenido:
		return apierror.Precondition("el pedido está retenido; reactívelo antes de continuar")
	case GeneralCancelado:
		return apierror.Precondition("el pedido está cancelado")
	}
	return nil
}

// ValidarDecisionCredito checks the credit gate command.
func (p *Pedido) ValidarDecisionCredito(decision DecisionCredito, justificacion string, numeroSAP *string) *apierror.Error {
	if err := p.validarOperable(); err != nil {
		return err
	}
	if p.EstadoCredito != CreditoPendiente {
		return apierror.InvalidState(fmt.Sprintf("el crédito ya fue resuelto (%s)", p.EstadoCredito))
	}
	if decision != DecisionAprobar && decision != DecisionRechazar {
		return apierror.Validation("decisión de crédito desconocida")
	}
	if len(justificacion) < MinJustificacion {
		return apierror.Validation(fmt.Sprintf("la justificación requiere al menos %d caracteres", MinJustificacion))
	}
	if decision == DecisionAprobar && !tieneValor(numeroSAP) && !tieneValor(p.NumeroPedidoSAP) {
		return apierror.Validation("la aprobación de crédito requiere el número de pedido SAP")
	}
	return nil
}

// ValidarAvanceLogistico checks a requested pipeline advance. The credit and
// hold guards are re-checked here independent of the credit gate's own call
// path — defense in depth.
func (p *Pedido) ValidarAvanceLogistico(destino EstadoLogistico) *apierror.Error {
	if err := p.validarOperable(); err != nil {
		return err
	}
	if p.EstadoCredito != CreditoAprobado {
		return apierror.Precondition("el pedido no tiene crédito aprobado")
	}
	siguiente, ok := SiguienteLogistico(p.EstadoLogistico)
	if !ok {
		return apierror.InvalidState("el pedido ya fue entregado")
	}
	if destino != siguiente {
		return apierror.InvalidTransition(fmt.Sprintf("desde %s sólo se puede avanzar a %s", etiquetaFase(p.EstadoLogistico), siguiente))
	}
	// Leaving PICKING or EMBALAJE requires that phase already closed
	if p.EstadoLogistico != nil && RequiereCierre(*p.EstadoLogistico) {
		entrada := p.UltimaEntradaLogistica(*p.EstadoLogistico)
		if entrada == nil || !entrada.Cerrada() {
			return apierror.Precondition(fmt.Sprintf("la fase %s no registra cierre (fecha_evento_fin)", *p.EstadoLogistico))
		}
	}
	if destino == LogisticoDespachado && !p.FacturaManual && !tieneValor(p.NumeroFacturaSAP) {
		return apierror.Precondition("no se puede despachar sin factura SAP ni factura manual")
	}
	return nil
}

// ValidarCierreFase checks the explicit phase-close action.
func (p *Pedido) ValidarCierreFase() *apierror.Error {
	if err := p.validarOperable(); err != nil {
		return err
	}
	if p.EstadoLogistico == nil || !RequiereCierre(*p.EstadoLogistico) {
		return apierror.InvalidState(fmt.Sprintf("la fase %s no admite cierre", etiquetaFase(p.EstadoLogistico)))
	}
	entrada := p.UltimaEntradaLogistica(*p.EstadoLogistico)
	if entrada == nil {
		return apierror.InvalidState(fmt.Sprintf("no existe entrada de historial para la fase %s", *p.EstadoLogistico))
	}
	if entrada.Cerrada() {
		return apierror.AlreadyClosed(fmt.Sprintf("la fase %s ya registra cierre", *p.EstadoLogistico))
	}
	return nil
}

// ValidarFacturacion checks markInvoiced. Restricted to ANDEN: the underlying
// source service allowed any phase, but the action only makes sense right
// before despacho.
func (p *Pedido) ValidarFacturacion(observacion string) *apierror.Error {
	if len(observacion) < MinJustificacion {
		return apierror.Validation(fmt.Sprintf("la observación requiere al menos %d caracteres", MinJustificacion))
	}
	if err := p.validarOperable(); err != nil {
		return err
	}
	if p.EstadoLogistico == nil || *p.EstadoLogistico != LogisticoAnden {
		return apierror.Precondition("la facturación sólo se registra con el pedido en ANDEN")
	}
	return nil
}

// ValidarEntrega checks markDelivered.
func (p *Pedido) ValidarEntrega(observacion string) *apierror.Error {
	if len(observacion) < MinJustificacion {
		return apierror.Validation(fmt.Sprintf("la observación requiere al menos %d caracteres", MinJustificacion))
	}
	if err := p.validarOperable(); err != nil {
		return err
	}
	if p.EstadoLogistico == nil || *p.EstadoLogistico != LogisticoDespachado {
		return apierror.InvalidState("sólo un pedido despachado puede marcarse entregado")
	}
	return nil
}

// ValidarCambioGeneral checks the overlay transitions. CANCELADO is reachable
// from any non-terminal state; RETENIDO and EN_PROCESO toggle each other.
func (p *Pedido) ValidarCambioGeneral(destino EstadoGeneral) *apierror.Error {
	if p.EstadoGeneral == GeneralCancelado {
		return apierror.InvalidState("el pedido está cancelado; no admite más transiciones")
	}
	switch destino {
	case GeneralCancelado:
		return nil
	case GeneralRetenido:
		if p.EstadoGeneral != GeneralNuevo && p.EstadoGeneral != GeneralEnProceso {
			return apierror.InvalidState(fmt.Sprintf("no se puede retener un pedido %s", p.EstadoGeneral))
		}
	case GeneralEnProceso:
		if p.EstadoGeneral != GeneralNuevo && p.EstadoGeneral != GeneralRetenido {
			return apierror.InvalidState(fmt.Sprintf("no se puede reactivar un pedido %s", p.EstadoGeneral))
		}
	default:
		return apierror.Validation(fmt.Sprintf("estado general destino no permitido: %s", destino))
	}
	return nil
}

// ValidarRegistroNumeroSAP checks the out-of-band SAP number correction.
func (p *Pedido) ValidarRegistroNumeroSAP(numero string) *apierror.Error {
	if numero == "" {
		return apierror.Validation("el número de pedido SAP no puede estar vacío")
	}
	if p.EstadoCredito != CreditoAprobado {
		return apierror.Precondition("el número de pedido SAP sólo se registra con crédito aprobado")
	}
	if tieneValor(p.NumeroPedidoSAP) {
		return apierror.InvalidState("el pedido ya tiene número SAP registrado")
	}
	return nil
}

func tieneValor(s *string) bool { return s != nil && *s != "" }

func etiquetaFase(e *EstadoLogistico) string {
	if e == nil {
		return "SIN_ENVIAR"
	}
	return string(*e)
}
