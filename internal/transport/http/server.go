package http

import (
	stdhttp "net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/batepapo-server/internal/chat"
	"github.com/vovakirdan/batepapo-server/internal/config"
)

// NewServer builds the HTTP server exposing the chat API.
func NewServer(svc *chat.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(svc, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter registers all routes on a gin engine.
func NewRouter(svc *chat.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg)))

	router.GET("/health", healthHandler)

	participants := NewParticipantHandlers(svc, logger)
	router.POST("/participants", participants.Register)
	router.GET("/participants", participants.List)

	messages := NewMessageHandlers(svc, logger)
	authed := router.Group("/")
	authed.Use(IdentityMiddleware(cfg.IdentityHeader, logger))
	{
		authed.POST("/messages", messages.Post)
		authed.GET("/messages", messages.List)
		authed.POST("/status", participants.Heartbeat)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", cfg.IdentityHeader, HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID},
	}
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
	}
	return c
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
