package model

import (
	"testing"
	"time"

	"pedidos/internal/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func fasePtr(e EstadoLogistico) *EstadoLogistico { return &e }

func pedidoAprobado(fase *EstadoLogistico) *Pedido {
	return &Pedido{
		EstadoGeneral:   GeneralEnProceso,
		EstadoCredito:   CreditoAprobado,
		EstadoLogistico: fase,
		NumeroPedidoSAP: strPtr("SAP-100"),
	}
}

// ── Crédito ───────────────────────────────────────────────────────────────────

func TestValidarDecisionCredito_Aprobar(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralNuevo, EstadoCredito: CreditoPendiente}

	assert.Nil(t, p.ValidarDecisionCredito(DecisionAprobar, "cliente con línea vigente", strPtr("SAP-1")))
}

func TestValidarDecisionCredito_AprobarSinNumeroSAP(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralNuevo, EstadoCredito: CreditoPendiente}

	err := p.ValidarDecisionCredito(DecisionAprobar, "cliente con línea vigente", nil)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindValidation, err.Kind)

	// rejection never needs the SAP number
	assert.Nil(t, p.ValidarDecisionCredito(DecisionRechazar, "línea de crédito agotada", nil))
}

func TestValidarDecisionCredito_JustificacionCorta(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralNuevo, EstadoCredito: CreditoPendiente}

	err := p.ValidarDecisionCredito(DecisionAprobar, "ok", strPtr("SAP-1"))
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindValidation, err.Kind)
}

func TestValidarDecisionCredito_YaResuelto(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralEnProceso, EstadoCredito: CreditoAprobado}

	err := p.ValidarDecisionCredito(DecisionRechazar, "cambio de opinión", nil)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)
}

func TestValidarDecisionCredito_PedidoRetenido(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralRetenido, EstadoCredito: CreditoPendiente}

	err := p.ValidarDecisionCredito(DecisionAprobar, "cliente con línea vigente", strPtr("SAP-1"))
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindPrecondition, err.Kind)
}

// ── Avance logístico ──────────────────────────────────────────────────────────

func TestValidarAvanceLogistico_SinCreditoAprobado(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralNuevo, EstadoCredito: CreditoPendiente}

	err := p.ValidarAvanceLogistico(LogisticoPendienteWMS)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindPrecondition, err.Kind)
}

func TestValidarAvanceLogistico_SaltoDeFase(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoCreado))

	err := p.ValidarAvanceLogistico(LogisticoPicking)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidTransition, err.Kind)

	// immediate successor passes
	assert.Nil(t, p.ValidarAvanceLogistico(LogisticoLiberado))
}

func TestValidarAvanceLogistico_Retroceso(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoAnden))

	err := p.ValidarAvanceLogistico(LogisticoPicking)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidTransition, err.Kind)
}

func TestValidarAvanceLogistico_FaseSinCerrar(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoPicking))
	p.Historial = []HistorialPedido{
		{Tipo: HistorialLogistico, EstadoNuevo: string(LogisticoPicking), FechaEvento: time.Now()},
	}

	err := p.ValidarAvanceLogistico(LogisticoEmbalaje)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindPrecondition, err.Kind)

	// closing the entry unblocks the advance
	fin := time.Now()
	p.Historial[0].FechaEventoFin = &fin
	assert.Nil(t, p.ValidarAvanceLogistico(LogisticoEmbalaje))
}

func TestValidarAvanceLogistico_DespachoSinFactura(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoAnden))

	err := p.ValidarAvanceLogistico(LogisticoDespachado)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindPrecondition, err.Kind)

	// manual invoice flag unblocks
	p.FacturaManual = true
	assert.Nil(t, p.ValidarAvanceLogistico(LogisticoDespachado))

	// SAP invoice number alone also unblocks
	p.FacturaManual = false
	p.NumeroFacturaSAP = strPtr("F-2201")
	assert.Nil(t, p.ValidarAvanceLogistico(LogisticoDespachado))
}

func TestValidarAvanceLogistico_DesdeEntregado(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoEntregado))

	err := p.ValidarAvanceLogistico(LogisticoPendienteWMS)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)
}

// ── Cierre de fase ────────────────────────────────────────────────────────────

func TestValidarCierreFase(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoPicking))
	p.Historial = []HistorialPedido{
		{Tipo: HistorialLogistico, EstadoNuevo: string(LogisticoPicking), FechaEvento: time.Now()},
	}
	assert.Nil(t, p.ValidarCierreFase())

	// double close
	fin := time.Now()
	p.Historial[0].FechaEventoFin = &fin
	err := p.ValidarCierreFase()
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindAlreadyClosed, err.Kind)
}

func TestValidarCierreFase_FaseSinCierre(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoAnden))

	err := p.ValidarCierreFase()
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)

	// not in warehouse at all
	p.EstadoLogistico = nil
	err = p.ValidarCierreFase()
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)
}

// ── Facturación y entrega ─────────────────────────────────────────────────────

func TestValidarFacturacion_SoloEnAnden(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoAnden))
	assert.Nil(t, p.ValidarFacturacion("factura manual 2201"))

	p.EstadoLogistico = fasePtr(LogisticoPicking)
	err := p.ValidarFacturacion("factura manual 2201")
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindPrecondition, err.Kind)
}

func TestValidarEntrega_SoloDespachado(t *testing.T) {
	p := pedidoAprobado(fasePtr(LogisticoDespachado))
	assert.Nil(t, p.ValidarEntrega("recibido conforme"))

	p.EstadoLogistico = fasePtr(LogisticoAnden)
	err := p.ValidarEntrega("recibido conforme")
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)
}

// ── Estado general ────────────────────────────────────────────────────────────

func TestValidarCambioGeneral_Toggle(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralEnProceso}
	assert.Nil(t, p.ValidarCambioGeneral(GeneralRetenido))

	p.EstadoGeneral = GeneralRetenido
	assert.Nil(t, p.ValidarCambioGeneral(GeneralEnProceso))

	// COMPLETADO cannot be held
	p.EstadoGeneral = GeneralCompletado
	err := p.ValidarCambioGeneral(GeneralRetenido)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)
}

func TestValidarCambioGeneral_CanceladoTerminal(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralCancelado}

	for _, destino := range []EstadoGeneral{GeneralEnProceso, GeneralRetenido, GeneralCancelado} {
		err := p.ValidarCambioGeneral(destino)
		require.NotNil(t, err, "destino %s", destino)
		assert.Equal(t, apierror.KindInvalidState, err.Kind)
	}
}

func TestValidarCambioGeneral_CancelarDesdeCualquierNoTerminal(t *testing.T) {
	for _, origen := range []EstadoGeneral{GeneralNuevo, GeneralEnProceso, GeneralRetenido, GeneralCompletado} {
		p := &Pedido{EstadoGeneral: origen}
		assert.Nil(t, p.ValidarCambioGeneral(GeneralCancelado), "origen %s", origen)
	}
}

func TestValidarCambioGeneral_DestinoDesconocido(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralNuevo}

	err := p.ValidarCambioGeneral(GeneralCompletado)
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindValidation, err.Kind)
}

// ── Número SAP fuera de banda ─────────────────────────────────────────────────

func TestValidarRegistroNumeroSAP(t *testing.T) {
	p := &Pedido{EstadoGeneral: GeneralEnProceso, EstadoCredito: CreditoAprobado}
	assert.Nil(t, p.ValidarRegistroNumeroSAP("SAP-900"))

	err := p.ValidarRegistroNumeroSAP("")
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindValidation, err.Kind)

	p.NumeroPedidoSAP = strPtr("SAP-100")
	err = p.ValidarRegistroNumeroSAP("SAP-900")
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindInvalidState, err.Kind)

	p = &Pedido{EstadoGeneral: GeneralNuevo, EstadoCredito: CreditoPendiente}
	err = p.ValidarRegistroNumeroSAP("SAP-900")
	require.NotNil(t, err)
	assert.Equal(t, apierror.KindPrecondition, err.Kind)
}
