package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"pedidos/internal/apierror"
	"pedidos/internal/dto"
	"pedidos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asKind(t *testing.T, err error) apierror.Kind {
	t.Helper()
	var aerr *apierror.Error
	require.True(t, errors.As(err, &aerr), "se esperaba *apierror.Error, vino %T", err)
	return aerr.Kind
}

// TestFlujoCompleto drives one pedido from creation to delivery through the
// services, exactly as the panel would, and checks the resulting history.
func TestFlujoCompleto(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	id := uuid.MustParse(creado.ID)

	f.aprobarCredito(t, creado.ID)

	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)

	f.avanzar(t, creado.ID, model.LogisticoPicking)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoEmbalaje)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoAnden)

	_, err := f.logisticaSvc.MarcarFacturado(context.Background(), id, nil, dto.FacturacionRequest{
		FacturaManual: true,
		Observacion:   "factura manual de respaldo",
		FechaEvento:   time.Now(),
	})
	require.NoError(t, err)

	f.avanzar(t, creado.ID, model.LogisticoDespachado)

	final, err := f.logisticaSvc.MarcarEntregado(context.Background(), id, nil, dto.EntregaRequest{
		FechaEvento: time.Now(),
		Observacion: "recibido conforme en destino",
	})
	require.NoError(t, err)

	require.NotNil(t, final.EstadoLogistico)
	assert.Equal(t, "ENTREGADO", *final.EstadoLogistico)
	assert.Equal(t, "COMPLETADO", final.EstadoGeneral)
	assert.Equal(t, "APROBADO", final.EstadoCredito)

	// 8 fases logísticas, 1 decisión de crédito, 3 generales
	// (apertura NUEVO, EN_PROCESO por crédito, COMPLETADO por entrega).
	counts := contarHistorial(final)
	assert.Equal(t, 8, counts["LOGISTICO"])
	assert.Equal(t, 1, counts["CREDITO"])
	assert.Equal(t, 3, counts["GENERAL"])
	assert.Len(t, final.Historial, 12)
}

func TestFlujoCompleto_SecuenciaCreciente(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)

	p, err := f.repo.FindByID(context.Background(), uuid.MustParse(creado.ID))
	require.NoError(t, err)
	require.NotEmpty(t, p.Historial)
	for i := 1; i < len(p.Historial); i++ {
		assert.Greater(t, p.Historial[i].Secuencia, p.Historial[i-1].Secuencia,
			"la secuencia debe crecer estrictamente en orden de inserción")
	}
}

func TestAvanzar_SinCreditoAprobado(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)

	_, err := f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(creado.ID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: string(model.LogisticoPendienteWMS),
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindPrecondition, asKind(t, err))
}

func TestAvanzar_SaltoDeFase(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)

	// PENDIENTE_WMS → LIBERADO se salta CREADO
	_, err := f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(creado.ID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: string(model.LogisticoLiberado),
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInvalidTransition, asKind(t, err))
}

func TestAvanzar_EstadoDesconocido(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)

	_, err := f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(creado.ID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: "EN_BODEGA",
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindValidation, asKind(t, err))
}

func TestAvanzar_FaseSinCerrar(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)
	f.avanzar(t, creado.ID, model.LogisticoPicking)

	// PICKING abierto bloquea el avance
	_, err := f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(creado.ID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: string(model.LogisticoEmbalaje),
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindPrecondition, asKind(t, err))

	// el cierre lo desbloquea
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoEmbalaje)
}

func TestAvanzar_DespachoSinFactura(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)
	f.avanzar(t, creado.ID, model.LogisticoPicking)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoEmbalaje)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoAnden)

	_, err := f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(creado.ID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: string(model.LogisticoDespachado),
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindPrecondition, asKind(t, err))
}

func TestAvanzar_PedidoRetenido(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)

	_, err := f.pedidoSvc.CambiarEstadoGeneral(context.Background(), uuid.MustParse(creado.ID), nil, dto.CambioGeneralRequest{
		EstadoDestino: "RETENIDO",
		FechaEvento:   time.Now(),
		Observacion:   "stock en disputa",
	})
	require.NoError(t, err)

	_, err = f.logisticaSvc.Avanzar(context.Background(), uuid.MustParse(creado.ID), nil, dto.AvanceLogisticoRequest{
		EstadoDestino: string(model.LogisticoCreado),
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindPrecondition, asKind(t, err))
}

func TestCerrarFase_Doble(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)
	f.avanzar(t, creado.ID, model.LogisticoPicking)
	f.cerrarFase(t, creado.ID)

	_, err := f.logisticaSvc.CerrarFase(context.Background(), uuid.MustParse(creado.ID), dto.CierreFaseRequest{
		FechaEventoFin: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindAlreadyClosed, asKind(t, err))
}

func TestCerrarFase_FaseSinCierre(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)

	// PENDIENTE_WMS no es una fase con duración
	_, err := f.logisticaSvc.CerrarFase(context.Background(), uuid.MustParse(creado.ID), dto.CierreFaseRequest{
		FechaEventoFin: time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInvalidState, asKind(t, err))
}

func TestCerrarFase_NoAbreEntradaNueva(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)
	antes := f.avanzar(t, creado.ID, model.LogisticoPicking)

	despues := f.cerrarFase(t, creado.ID)

	// el cierre muta la entrada existente, no agrega otra
	assert.Len(t, despues.Historial, len(antes.Historial))
	require.NotNil(t, despues.EstadoLogistico)
	assert.Equal(t, "PICKING", *despues.EstadoLogistico)

	ultima := despues.Historial[len(despues.Historial)-1]
	assert.Equal(t, "PICKING", ultima.EstadoNuevo)
	assert.NotNil(t, ultima.FechaEventoFin)
}

func TestMarcarFacturado_SoloEnAnden(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)

	_, err := f.logisticaSvc.MarcarFacturado(context.Background(), uuid.MustParse(creado.ID), nil, dto.FacturacionRequest{
		FacturaManual: true,
		Observacion:   "fuera de fase",
		FechaEvento:   time.Now(),
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindPrecondition, asKind(t, err))
}

func TestMarcarFacturado_NoAgregaHistorial(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)
	f.avanzar(t, creado.ID, model.LogisticoPicking)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoEmbalaje)
	f.cerrarFase(t, creado.ID)
	antes := f.avanzar(t, creado.ID, model.LogisticoAnden)

	sap := "FAC-9000"
	resp, err := f.logisticaSvc.MarcarFacturado(context.Background(), uuid.MustParse(creado.ID), nil, dto.FacturacionRequest{
		NumeroFacturaSAP: &sap,
		Observacion:      "facturado desde SAP",
		FechaEvento:      time.Now(),
	})
	require.NoError(t, err)

	// parche de metadatos: cambia la factura, no el historial
	assert.Len(t, resp.Historial, len(antes.Historial))
	require.NotNil(t, resp.NumeroFacturaSAP)
	assert.Equal(t, "FAC-9000", *resp.NumeroFacturaSAP)
	assert.False(t, resp.FacturaManual)
}

func TestMarcarFacturado_AuditaActor(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)
	f.avanzar(t, creado.ID, model.LogisticoCreado)
	f.avanzar(t, creado.ID, model.LogisticoLiberado)
	f.avanzar(t, creado.ID, model.LogisticoPicking)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoEmbalaje)
	f.cerrarFase(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoAnden)

	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	actor := uuid.New()
	_, err := f.logisticaSvc.MarcarFacturado(context.Background(), uuid.MustParse(creado.ID), &actor, dto.FacturacionRequest{
		FacturaManual: true,
		Observacion:   "factura manual de respaldo",
		FechaEvento:   time.Now(),
	})
	require.NoError(t, err)

	// la auditoría del parche de metadatos identifica al responsable
	assert.Contains(t, buf.String(), "facturación registrada")
	assert.Contains(t, buf.String(), actor.String())
}

func TestMarcarEntregado_SoloDespachado(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID)
	f.avanzar(t, creado.ID, model.LogisticoPendienteWMS)

	_, err := f.logisticaSvc.MarcarEntregado(context.Background(), uuid.MustParse(creado.ID), nil, dto.EntregaRequest{
		FechaEvento: time.Now(),
		Observacion: "entrega imposible aquí",
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInvalidState, asKind(t, err))
}

func TestRegistrarNumeroSAP(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)

	// el registro fuera de banda exige crédito aprobado
	_, err := f.logisticaSvc.RegistrarNumeroSAP(context.Background(), uuid.MustParse(creado.ID), nil, dto.RegistroNumeroSAPRequest{
		NumeroPedidoSAP: "SAP-500",
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindPrecondition, asKind(t, err))
}

func TestRegistrarNumeroSAP_YaRegistrado(t *testing.T) {
	f := newFixture(t)
	creado := f.crearPedido(t)
	f.aprobarCredito(t, creado.ID) // setea SAP-100

	_, err := f.logisticaSvc.RegistrarNumeroSAP(context.Background(), uuid.MustParse(creado.ID), nil, dto.RegistroNumeroSAPRequest{
		NumeroPedidoSAP: "SAP-600",
	})
	require.Error(t, err)
	assert.Equal(t, apierror.KindInvalidState, asKind(t, err))
}
