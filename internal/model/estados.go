package model

// Los tres ejes de estado de un pedido son independientes pero se cruzan por
// guardas: el crédito habilita la logística, y el estado general puede
// suspender (RETENIDO) o terminar (CANCELADO) cualquier flujo.

// EstadoGeneral is the coarse lifecycle flag of a pedido.
type EstadoGeneral string

const (
	GeneralNuevo      EstadoGeneral = "NUEVO"
	GeneralEnProceso  EstadoGeneral = "EN_PROCESO"
	GeneralRetenido   EstadoGeneral = "RETENIDO"
	GeneralCompletado EstadoGeneral = "COMPLETADO"
	// GeneralCancelado is terminal — no further transitions of any kind.
	GeneralCancelado EstadoGeneral = "CANCELADO"
)

// EstadoCredito is the credit-approval gate before warehouse processing.
type EstadoCredito string

const (
	CreditoPendiente EstadoCredito = "PENDIENTE"
	CreditoAprobado  EstadoCredito = "APROBADO"
	CreditoRechazado EstadoCredito = "RECHAZADO"
)

// DecisionCredito is the command payload for the credit gate.
type DecisionCredito string

const (
	DecisionAprobar  DecisionCredito = "APROBAR"
	DecisionRechazar DecisionCredito = "RECHAZAR"
)

// EstadoLogistico is the warehouse/fulfillment phase. A pedido without one
// (NULL column) has not been sent to the warehouse yet.
type EstadoLogistico string

const (
	LogisticoPendienteWMS EstadoLogistico = "PENDIENTE_WMS"
	LogisticoCreado       EstadoLogistico = "CREADO"
	LogisticoLiberado     EstadoLogistico = "LIBERADO"
	LogisticoPicking      EstadoLogistico = "PICKING"
	LogisticoEmbalaje     EstadoLogistico = "EMBALAJE"
	LogisticoAnden        EstadoLogistico = "ANDEN"
	LogisticoDespachado   EstadoLogistico = "DESPACHADO"
	LogisticoEntregado    EstadoLogistico = "ENTREGADO"
)

// siguienteLogistico encodes the strict linear pipeline. Each state has exactly
// one forward transition; ENTREGADO is terminal and has no entry.
var siguienteLogistico = map[EstadoLogistico]EstadoLogistico{
	LogisticoPendienteWMS: LogisticoCreado,
	LogisticoCreado:       LogisticoLiberado,
	LogisticoLiberado:     LogisticoPicking,
	LogisticoPicking:      LogisticoEmbalaje,
	LogisticoEmbalaje:     LogisticoAnden,
	LogisticoAnden:        LogisticoDespachado,
	LogisticoDespachado:   LogisticoEntregado,
}

// fasesConCierre are the duration-bearing phases that require an explicit
// close (fecha_evento_fin) before the pipeline may advance past them.
var fasesConCierre = map[EstadoLogistico]bool{
	LogisticoPicking:  true,
	LogisticoEmbalaje: true,
}

// SiguienteLogistico returns the only legal next phase from the current one.
// A nil current state means "not yet in warehouse" and advances to PENDIENTE_WMS.
func SiguienteLogistico(actual *EstadoLogistico) (EstadoLogistico, bool) {
	if actual == nil {
		return LogisticoPendienteWMS, true
	}
	sig, ok := siguienteLogistico[*actual]
	return sig, ok
}

// RequiereCierre reports whether a phase needs an explicit close before the
// pipeline may leave it.
func RequiereCierre(fase EstadoLogistico) bool { return fasesConCierre[fase] }

// TipoHistorial tags a history entry with the axis it belongs to.
type TipoHistorial string

const (
	HistorialGeneral   TipoHistorial = "GENERAL"
	HistorialCredito   TipoHistorial = "CREDITO"
	HistorialLogistico TipoHistorial = "LOGISTICO"
)
