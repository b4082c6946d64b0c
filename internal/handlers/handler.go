package handlers

import (
	"smart_home/internal/hub"
	"smart_home/internal/logger"
	"smart_home/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services, the broadcast hub and logging.
type Handler struct {
	services       *service.Service
	hub            *hub.Hub
	log            *logger.Logger
	allowedOrigins []string
}

// NewHandler constructs a new HTTP handler with dependencies.
// allowedOrigins feeds both the CORS middleware and the WebSocket origin check;
// "*" allows any origin.
func NewHandler(services *service.Service, h *hub.Hub, log *logger.Logger, allowedOrigins []string) *Handler {
	return &Handler{services: services, hub: h, log: log, allowedOrigins: allowedOrigins}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.corsMiddleware)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/", h.banner)
	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// WebSocket channel on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		h.registerDeviceRoutes(api)
		h.registerEspRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	api.GET("/status", h.getStatus)
	api.POST("/light", h.setLight)
	api.POST("/fan", h.setFan)
	api.POST("/telemetry-update", h.telemetryUpdate)
	// Legacy path still used by deployed ESP firmware.
	api.POST("/update", h.telemetryUpdate)
}

func (h *Handler) registerEspRoutes(api *gin.RouterGroup) {
	esp := api.Group("/esp")
	{
		esp.POST("/heartbeat", h.espHeartbeat)
		esp.GET("/command", h.espCommand)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
		logs.GET("/", h.getLogs)
	}
}
