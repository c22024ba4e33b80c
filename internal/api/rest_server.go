package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/rivergen/internal/cache"
	"github.com/annel0/rivergen/internal/logging"
	"github.com/annel0/rivergen/internal/middleware"
	"github.com/annel0/rivergen/internal/storage"
	"github.com/annel0/rivergen/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RestServer - отладочный HTTP API генератора рек. Все маршруты только читают.
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	sampler *world.ChunkSampler
	regions *world.RegionManager
	repo    storage.RiverDataRepo
	flow    *cache.FlowCache
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит зависимости REST сервера
type Config struct {
	Port     string              // адрес для запуска сервера, например ":8088"
	Sampler  *world.ChunkSampler // обязателен
	Repo     storage.RiverDataRepo
	Flow     *cache.FlowCache
	Registry *prometheus.Registry // nil - DefaultRegisterer/DefaultGatherer
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("rivergen_api"))
	router.Use(middleware.NewRequestLogger().Handler())

	var (
		reg    prometheus.Registerer
		gather prometheus.Gatherer
	)
	if config.Registry != nil {
		reg, gather = config.Registry, config.Registry
	}
	promMw := middleware.NewPrometheusMiddleware("rivergen_api", reg)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, gather)

	rs := &RestServer{
		router:  router,
		sampler: config.Sampler,
		regions: config.Sampler.Regions(),
		repo:    config.Repo,
		flow:    config.Flow,
		metrics: NewServerMetrics(),
		logger:  logging.GetAPILogger(),
	}
	rs.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/regions", rs.handleRegions)
		api.GET("/regions/:x/:z", rs.handleRegion)
		api.GET("/regions/:x/:z/rivers", rs.handleRivers)
		api.GET("/regions/:x/:z/debug/:view", rs.handleDebug)
		api.GET("/sample", rs.handleSample)
		api.GET("/chunks/:x/:z", rs.handleChunk)
		api.GET("/flow", rs.handleFlow)
	}
}

// Handler возвращает http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокируется до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 Отладочный API доступен по адресу %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return rs.server.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().Unix(),
		"regions": rs.regions.Count(),
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, GenericResponse{
		Success: false,
		Message: message,
	})
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}
