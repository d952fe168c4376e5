package config

import (
	"fmt"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	CA       CAConfig       `yaml:"ca"`
	SAML     SAMLConfig     `yaml:"saml"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CAConfig contains the CA key and issuance policy. An empty valid_principals
// list means every issued certificate permits any principal.
type CAConfig struct {
	PrivateKeyPath     string   `yaml:"private_key_path"`
	PublicKeyPath      string   `yaml:"public_key_path"`
	ValidPrincipals    []string `yaml:"valid_principals"`
	ValidityPeriodSecs uint64   `yaml:"validity_period_secs"`
}

// SAMLConfig contains the service-provider side of the federation
type SAMLConfig struct {
	IDPMetadataURL  string `yaml:"idp_metadata_url"`
	IDPLoginURL     string `yaml:"idp_login_url"`
	EntityID        string `yaml:"entity_id"`
	CertificatePath string `yaml:"certificate_path"`
	PrivateKeyPath  string `yaml:"private_key_path"`
	ACSURL          string `yaml:"acs_url"`
}

// SessionConfig contains session configuration
type SessionConfig struct {
	TTL string `yaml:"ttl"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	// Database validation
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// CA validation
	if c.CA.PrivateKeyPath == "" {
		return fmt.Errorf("ca.private_key_path is required")
	}
	if c.CA.ValidityPeriodSecs == 0 {
		return fmt.Errorf("ca.validity_period_secs must be positive")
	}

	// SAML validation
	if c.SAML.IDPMetadataURL == "" {
		return fmt.Errorf("saml.idp_metadata_url is required")
	}
	if c.SAML.EntityID == "" {
		return fmt.Errorf("saml.entity_id is required")
	}
	if c.SAML.CertificatePath == "" {
		return fmt.Errorf("saml.certificate_path is required")
	}
	if c.SAML.PrivateKeyPath == "" {
		return fmt.Errorf("saml.private_key_path is required")
	}
	if c.SAML.ACSURL == "" {
		return fmt.Errorf("saml.acs_url is required")
	}

	// Session validation
	if c.Session.TTL != "" {
		if _, err := time.ParseDuration(c.Session.TTL); err != nil {
			return fmt.Errorf("session.ttl is invalid: %w", err)
		}
	}

	// Logging validation
	if c.Logging.Level != "" {
		validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLogLevels[c.Logging.Level] {
			return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
		}
	}

	return nil
}

// GetValidityPeriod returns the certificate validity as time.Duration
func (c *Config) GetValidityPeriod() time.Duration {
	return time.Duration(c.CA.ValidityPeriodSecs) * time.Second
}

// GetSessionTTL returns the session lifetime, defaulting to 12 hours
func (c *Config) GetSessionTTL() time.Duration {
	if c.Session.TTL == "" {
		return 12 * time.Hour
	}
	d, _ := time.ParseDuration(c.Session.TTL)
	return d
}
