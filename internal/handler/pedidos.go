package handler

import (
	"net/http"

	"pedidos/internal/apierror"
	"pedidos/internal/dto"
	"pedidos/internal/middleware"
	"pedidos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PedidosHandler struct {
	pedidoSvc    service.PedidoService
	creditoSvc   service.CreditoService
	logisticaSvc service.LogisticaService
}

func NewPedidosHandler(pedidoSvc service.PedidoService, creditoSvc service.CreditoService, logisticaSvc service.LogisticaService) *PedidosHandler {
	return &PedidosHandler{pedidoSvc: pedidoSvc, creditoSvc: creditoSvc, logisticaSvc: logisticaSvc}
}

func pedidoID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.Validation("ID de pedido invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// Crear godoc
// @Summary      Crear pedido
// @Description  Crea el pedido en NUEVO con crédito PENDIENTE y logística sin enviar; abre el historial. Con auto_aprobar corre la aprobación de crédito en la misma transacción.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearPedidoRequest true "Detalle del pedido"
// @Success      201  {object} dto.PedidoResponse
// @Failure      422  {object} apierror.Error
// @Router       /v1/pedidos [post]
func (h *PedidosHandler) Crear(c *gin.Context) {
	var req dto.CrearPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.pedidoSvc.Crear(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Obtener godoc
// @Summary      Obtener pedido
// @Description  Retorna el snapshot completo: estados, items, montos y el historial en orden de inserción.
// @Tags         pedidos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del pedido"
// @Success      200 {object} dto.PedidoResponse
// @Failure      404 {object} apierror.Error
// @Router       /v1/pedidos/{id} [get]
func (h *PedidosHandler) Obtener(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	resp, err := h.pedidoSvc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar pedidos
// @Description  Lista paginada filtrada por los tres ejes de estado y fecha. estado_logistico=sin_enviar filtra los no enviados al depósito.
// @Tags         pedidos
// @Produce      json
// @Security     BearerAuth
// @Param        estado_general   query string false "NUEVO | EN_PROCESO | RETENIDO | COMPLETADO | CANCELADO"
// @Param        estado_credito   query string false "PENDIENTE | APROBADO | RECHAZADO"
// @Param        estado_logistico query string false "fase WMS o sin_enviar"
// @Param        fecha            query string false "Fecha YYYY-MM-DD"
// @Param        page             query int    false "Página (default 1)"
// @Param        limit            query int    false "Registros por página (default 50)"
// @Success      200 {object} dto.PedidoListResponse
// @Router       /v1/pedidos [get]
func (h *PedidosHandler) Listar(c *gin.Context) {
	var filter dto.PedidoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.Validation(err.Error()))
		return
	}
	resp, err := h.pedidoSvc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DecidirCredito godoc
// @Summary      Decidir crédito
// @Description  Resuelve la puerta de crédito: APROBAR exige número de pedido SAP y justificación; RECHAZAR es terminal. La primera decisión mueve el pedido a EN_PROCESO.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "UUID del pedido"
// @Param        body body dto.DecisionCreditoRequest true "Decisión"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.Error
// @Failure      422  {object} apierror.Error
// @Router       /v1/pedidos/{id}/credito [post]
func (h *PedidosHandler) DecidirCredito(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.DecisionCreditoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.creditoSvc.Decidir(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AvanzarLogistica godoc
// @Summary      Avanzar fase logística
// @Description  Mueve el pedido a la fase sucesora inmediata del pipeline WMS. Exige crédito aprobado; PICKING y EMBALAJE deben cerrarse antes de avanzar; DESPACHADO exige factura.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                     true "UUID del pedido"
// @Param        body body dto.AvanceLogisticoRequest true "Fase destino"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.Error
// @Failure      412  {object} apierror.Error
// @Router       /v1/pedidos/{id}/logistica/avanzar [post]
func (h *PedidosHandler) AvanzarLogistica(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.AvanceLogisticoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.logisticaSvc.Avanzar(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CerrarFase godoc
// @Summary      Cerrar fase actual
// @Description  Registra fecha_evento_fin en la entrada abierta de PICKING o EMBALAJE. No cambia el estado logístico.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string               true "UUID del pedido"
// @Param        body body dto.CierreFaseRequest true "Fecha de cierre"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.Error
// @Router       /v1/pedidos/{id}/logistica/cerrar-fase [post]
func (h *PedidosHandler) CerrarFase(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.CierreFaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.logisticaSvc.CerrarFase(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarcarFacturado godoc
// @Summary      Registrar facturación
// @Description  Registra el número de factura SAP y/o la marca de factura manual con el pedido en ANDEN. Patch de metadatos: no agrega entrada de historial.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID del pedido"
// @Param        body body dto.FacturacionRequest true "Datos de facturación"
// @Success      200  {object} dto.PedidoResponse
// @Failure      412  {object} apierror.Error
// @Router       /v1/pedidos/{id}/facturacion [post]
func (h *PedidosHandler) MarcarFacturado(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.FacturacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.logisticaSvc.MarcarFacturado(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MarcarEntregado godoc
// @Summary      Marcar entregado
// @Description  Cierra el pipeline DESPACHADO → ENTREGADO y completa el estado general.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string             true "UUID del pedido"
// @Param        body body dto.EntregaRequest true "Entrega"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.Error
// @Router       /v1/pedidos/{id}/entrega [post]
func (h *PedidosHandler) MarcarEntregado(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.EntregaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.logisticaSvc.MarcarEntregado(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarEstadoGeneral godoc
// @Summary      Cambiar estado general
// @Description  Retiene, reactiva o cancela el pedido. RETENIDO congela crédito y logística; CANCELADO es terminal.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID del pedido"
// @Param        body body dto.CambioGeneralRequest true "Estado destino"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.Error
// @Router       /v1/pedidos/{id}/estado-general [post]
func (h *PedidosHandler) CambiarEstadoGeneral(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.CambioGeneralRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.pedidoSvc.CambiarEstadoGeneral(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarNumeroSAP godoc
// @Summary      Registrar número de pedido SAP
// @Description  Corrección fuera de banda para un pedido aprobado que quedó sin número SAP. No agrega entrada de historial.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true "UUID del pedido"
// @Param        body body dto.RegistroNumeroSAPRequest true "Número SAP"
// @Success      200  {object} dto.PedidoResponse
// @Failure      409  {object} apierror.Error
// @Router       /v1/pedidos/{id}/numero-sap [post]
func (h *PedidosHandler) RegistrarNumeroSAP(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.RegistroNumeroSAPRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.logisticaSvc.RegistrarNumeroSAP(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CorregirHistorial godoc
// @Summary      Corregir timestamps del historial
// @Description  Reescribe fecha_evento / fecha_evento_fin de entradas existentes en lote. Nunca cambia cantidad, tipo ni estados de las entradas.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                         true "UUID del pedido"
// @Param        body body dto.CorreccionHistorialRequest true "Correcciones"
// @Success      200  {object} dto.PedidoResponse
// @Failure      404  {object} apierror.Error
// @Router       /v1/pedidos/{id}/historial/correcciones [post]
func (h *PedidosHandler) CorregirHistorial(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	var req dto.CorreccionHistorialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.pedidoSvc.CorregirHistorial(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Transiciones godoc
// @Summary      Transiciones disponibles
// @Description  Dry-run de todas las guardas: qué acciones aceptaría el pedido ahora mismo y por qué se bloquean las demás.
// @Tags         pedidos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del pedido"
// @Success      200 {object} dto.TransicionesResponse
// @Failure      404 {object} apierror.Error
// @Router       /v1/pedidos/{id}/transiciones [get]
func (h *PedidosHandler) Transiciones(c *gin.Context) {
	id, ok := pedidoID(c)
	if !ok {
		return
	}
	resp, err := h.pedidoSvc.TransicionesDisponibles(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
