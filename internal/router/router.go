package router

import (
	"time"

	"pedidos/internal/config"
	"pedidos/internal/handler"
	"pedidos/internal/infra"
	"pedidos/internal/middleware"
	"pedidos/internal/repository"
	"pedidos/internal/service"
	"pedidos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, webhook *infra.WebhookClient) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	pedidoRepo := repository.NewPedidoRepository(db)
	clienteRepo := repository.NewClienteRepository(db)
	canalRepo := repository.NewCanalVentaRepository(db)
	productoRepo := repository.NewProductoRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	pedidoSvc := service.NewPedidoService(pedidoRepo, clienteRepo, canalRepo, productoRepo, dispatcher)
	creditoSvc := service.NewCreditoService(pedidoRepo, dispatcher)
	logisticaSvc := service.NewLogisticaService(pedidoRepo, dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	pedidosH := handler.NewPedidosHandler(pedidoSvc, creditoSvc, logisticaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, webhook))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operador, analista_credito, supervisor, administrador
		todos := middleware.RequireRole("operador", "analista_credito", "supervisor", "administrador")
		operacion := middleware.RequireRole("operador", "supervisor", "administrador")
		credito := middleware.RequireRole("analista_credito", "supervisor", "administrador")
		supervision := middleware.RequireRole("supervisor", "administrador")

		// Lectura — all authenticated roles
		v1.GET("/pedidos", todos, pedidosH.Listar)
		v1.GET("/pedidos/:id", todos, pedidosH.Obtener)
		v1.GET("/pedidos/:id/transiciones", todos, pedidosH.Transiciones)

		// Alta e importación
		v1.POST("/pedidos", operacion, pedidosH.Crear)

		// Puerta de crédito
		v1.POST("/pedidos/:id/credito", credito, pedidosH.DecidirCredito)

		// Pipeline logístico
		v1.POST("/pedidos/:id/logistica/avanzar", operacion, pedidosH.AvanzarLogistica)
		v1.POST("/pedidos/:id/logistica/cerrar-fase", operacion, pedidosH.CerrarFase)
		v1.POST("/pedidos/:id/facturacion", operacion, pedidosH.MarcarFacturado)
		v1.POST("/pedidos/:id/entrega", operacion, pedidosH.MarcarEntregado)

		// Overlay general y correcciones administrativas
		v1.POST("/pedidos/:id/estado-general", supervision, pedidosH.CambiarEstadoGeneral)
		v1.POST("/pedidos/:id/numero-sap", supervision, pedidosH.RegistrarNumeroSAP)
		v1.POST("/pedidos/:id/historial/correcciones", supervision, pedidosH.CorregirHistorial)

		// Usuarios — administrador only
		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
