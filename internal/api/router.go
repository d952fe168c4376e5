package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshwebca/sshwebca/internal/api/handlers"
	"github.com/sshwebca/sshwebca/internal/api/middleware"
	"github.com/sshwebca/sshwebca/internal/auth"
	"github.com/sshwebca/sshwebca/internal/ca"
	"github.com/sshwebca/sshwebca/internal/config"
	"github.com/sshwebca/sshwebca/internal/db/repository"
	"github.com/sshwebca/sshwebca/internal/session"
	"github.com/sshwebca/sshwebca/internal/sso"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	signingKey *ca.SigningKey,
	signer *ca.CA,
	provider *sso.Provider,
	bridge *auth.Bridge,
	sessions *session.Manager,
	certRepo *repository.CertRepository,
) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	// Create handlers
	authHandler := handlers.NewAuthHandler(provider, bridge, sessions)
	signHandler := handlers.NewSignHandler(signer, bridge, certRepo)
	caHandler := handlers.NewCAHandler(signingKey)

	// Landing page
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Nothing here yet. Try visiting again some time.")
	})

	// Authentication
	router.POST("/login", authHandler.Login)
	router.GET("/login", authHandler.LoginRedirect)
	router.GET("/logout", authHandler.Logout)

	apiGroup := router.Group("/api")
	{
		// Hosts fetch this to trust the CA; no session required
		apiGroup.GET("/ca_public_key", caHandler.GetCAPublicKey)

		// The session gate runs before the handler touches the signer or
		// the store
		apiGroup.POST("/sign_ssh_public_key",
			middleware.RequireSession(sessions), signHandler.SignPublicKey)
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(s.config.Server.ListenAddr)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
