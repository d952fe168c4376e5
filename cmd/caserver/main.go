package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sshwebca/sshwebca/internal/api"
	"github.com/sshwebca/sshwebca/internal/auth"
	"github.com/sshwebca/sshwebca/internal/ca"
	"github.com/sshwebca/sshwebca/internal/config"
	"github.com/sshwebca/sshwebca/internal/db"
	"github.com/sshwebca/sshwebca/internal/db/repository"
	"github.com/sshwebca/sshwebca/internal/session"
	"github.com/sshwebca/sshwebca/internal/sso"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath(), "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("SSH Web CA\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	log.Printf("Starting SSH Web CA %s (commit: %s)", Version, Commit)

	// Load configuration
	log.Printf("Loading configuration from %s", *configPath)
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	log.Printf("Connecting to database: %s", cfg.Database.Path)
	database, err := db.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	log.Printf("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Load or generate CA signing key
	log.Printf("Loading CA signing key from %s", cfg.CA.PrivateKeyPath)
	signingKey, err := ca.LoadOrGenerateSigningKey(cfg.CA.PrivateKeyPath, cfg.CA.PublicKeyPath)
	if err != nil {
		log.Fatalf("Failed to load CA signing key: %v", err)
	}
	log.Printf("CA signing key loaded (type: %s)", signingKey.PublicKey().Type())

	signer := ca.New(signingKey, cfg.CA.ValidPrincipals, cfg.GetValidityPeriod())
	if len(cfg.CA.ValidPrincipals) == 0 {
		log.Printf("WARNING: no valid_principals configured; issued certificates will permit any principal")
	}

	// Build the SAML service provider; the metadata fetch is the only
	// network call at startup
	log.Printf("Fetching IdP metadata from %s", cfg.SAML.IDPMetadataURL)
	metadataCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	provider, err := sso.NewProvider(metadataCtx, cfg.SAML)
	cancel()
	if err != nil {
		log.Fatalf("Failed to initialize SAML service provider: %v", err)
	}

	// Initialize repositories and the identity bridge
	userRepo := repository.NewUserRepository(database.DB)
	certRepo := repository.NewCertRepository(database.DB)
	bridge := auth.NewBridge(userRepo)

	// Sessions are process-local and vanish on restart
	sessions := session.NewManager(session.NewMemoryStore(), cfg.GetSessionTTL())

	// Create HTTP server
	server := api.NewServer(cfg, signingKey, signer, provider, bridge, sessions, certRepo)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on %s", cfg.Server.ListenAddr)
		if err := server.Run(); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("SSH Web CA is running")

	// Wait for interrupt signal
	<-quit
	log.Printf("Shutting down server...")

	database.Close()

	log.Printf("Server stopped")
}

// defaultConfigPath honors the SSH_WEB_CA_CONFIG environment variable
func defaultConfigPath() string {
	if path := os.Getenv("SSH_WEB_CA_CONFIG"); path != "" {
		return path
	}
	return "./config.yml"
}
