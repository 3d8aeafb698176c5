package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"skylane/internal/cache"
	"skylane/internal/config"
	"skylane/internal/database"
	"skylane/internal/external"
	"skylane/internal/handlers"
	"skylane/internal/logger"
	"skylane/internal/messaging"
	"skylane/internal/middleware"
	"skylane/internal/repository"
	"skylane/internal/search"
	"skylane/internal/service"
)

// Server is the HTTP API in front of the check-in workflow engine.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	es       *search.ElasticsearchClient
	services *service.Services
}

// NewServer wires the full dependency graph. Postgres, NATS, Valkey and
// Elasticsearch are degraded gracefully: the core workflow keeps serving
// without them.
func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	deps := service.Deps{
		Airline:    external.NewAirlineClient(cfg.Airline),
		Payment:    external.NewPaymentClient(cfg.Payment),
		SessionTTL: cfg.SessionTTL,
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		slog.Warn("Archive database unavailable, lookups disabled", "error", err)
		db = nil
	} else if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	} else {
		deps.Repos = repository.NewRepositories(db)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		slog.Warn("NATS unavailable, events disabled", "error", err)
		natsClient = nil
	} else {
		deps.Events = natsClient
	}

	valkeyClient, err := cache.NewValkeyClient(cfg.Valkey)
	if err != nil {
		slog.Warn("Valkey unavailable, search cache and seat holds disabled", "error", err)
		valkeyClient = nil
	} else {
		deps.Cache = valkeyClient
		deps.SeatHolds = valkeyClient
	}

	esClient, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		slog.Warn("Elasticsearch unavailable, suggestions fall back to airline API", "error", err)
		esClient = nil
	} else {
		deps.Suggester = esClient
	}

	services := service.NewServices(deps)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		es:       esClient,
		services: services,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")
	{
		flights := api.Group("/flights")
		{
			flights.GET("/search", h.SearchFlights)
			flights.GET("/suggested", h.SuggestedFlights)
			flights.GET("/:id", h.GetFlight)
		}

		checkin := api.Group("/checkin")
		checkin.Use(middleware.BearerAuth())
		{
			sessions := checkin.Group("/sessions")
			{
				sessions.POST("", h.StartSession)
				sessions.GET("/:id", h.GetSession)
				sessions.POST("/:id/continue", h.ContinueSession)
				sessions.POST("/:id/back", h.BackSession)
				sessions.POST("/:id/passengers", h.SubmitPassengers)
				sessions.POST("/:id/seats", h.AssignSeat)
				sessions.POST("/:id/leg", h.SwitchLeg)
				sessions.POST("/:id/payment-intent", h.CreatePaymentIntent)
				sessions.POST("/:id/payment-confirm", h.ConfirmPayment)
			}
			checkin.GET("/archive", h.ListArchivedCheckins)
			checkin.GET("/archive/:id", h.GetArchivedCheckin)
			checkin.GET("/archive/:id/events", h.GetArchivedEvents)
		}

		tickets := api.Group("/tickets")
		tickets.Use(middleware.BearerAuth())
		{
			tickets.GET("", h.GetTicket)
			tickets.PUT("/cancel", h.CancelTicket)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	response := gin.H{
		"status":  "ok",
		"service": "skylane-api",
		"version": "1.0.0",
	}
	if s.db != nil {
		response["database"] = s.db.HealthCheck(c.Request.Context())
	}
	if s.es != nil {
		if err := s.es.HealthCheck(c.Request.Context()); err != nil {
			response["search"] = gin.H{"status": "unhealthy", "error": err.Error()}
		} else {
			response["search"] = gin.H{"status": "healthy"}
		}
	}
	c.JSON(http.StatusOK, response)
}

// GetRouter exposes the router so the entrypoint can mount it on its own
// http.Server, and tests can drive it directly.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes the outbound connections.
func (s *Server) Cleanup() error {
	s.services.Checkin.Close()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}
	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			slog.Error("Error closing Valkey connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}
	return nil
}
