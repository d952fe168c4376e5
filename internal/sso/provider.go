// Package sso wraps the SAML service-provider machinery. Assertion parsing
// and signature validation live entirely here; by the time an assertion
// reaches the identity bridge its authenticity is already established.
package sso

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"

	"github.com/sshwebca/sshwebca/internal/config"
)

// Provider is the SAML service provider for this deployment
type Provider struct {
	sp          saml.ServiceProvider
	idpLoginURL string
}

// NewProvider builds the service provider from configuration. It fetches the
// IdP metadata over HTTP, so a hung metadata endpoint only delays startup,
// never per-request handling.
func NewProvider(ctx context.Context, cfg config.SAMLConfig) (*Provider, error) {
	keyPair, err := tls.LoadX509KeyPair(cfg.CertificatePath, cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load SP key pair: %w", err)
	}

	keyPair.Leaf, err = x509.ParseCertificate(keyPair.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse SP certificate: %w", err)
	}

	rsaKey, ok := keyPair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("SP private key must be RSA")
	}

	metadataURL, err := url.Parse(cfg.IDPMetadataURL)
	if err != nil {
		return nil, fmt.Errorf("invalid IdP metadata URL: %w", err)
	}

	idpMetadata, err := samlsp.FetchMetadata(ctx, http.DefaultClient, *metadataURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch IdP metadata: %w", err)
	}

	acsURL, err := url.Parse(cfg.ACSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ACS URL: %w", err)
	}

	sp := saml.ServiceProvider{
		EntityID:          cfg.EntityID,
		Key:               rsaKey,
		Certificate:       keyPair.Leaf,
		IDPMetadata:       idpMetadata,
		AcsURL:            *acsURL,
		AllowIDPInitiated: true,
	}

	return &Provider{
		sp:          sp,
		idpLoginURL: cfg.IDPLoginURL,
	}, nil
}

// ParseResponse validates the base64 SAMLResponse form field of the request
// and returns the contained assertion
func (p *Provider) ParseResponse(r *http.Request) (*saml.Assertion, error) {
	assertion, err := p.sp.ParseResponse(r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SAML response: %w", err)
	}

	return assertion, nil
}

// IDPLoginURL returns the configured IdP login redirect target, or empty when
// none is configured
func (p *Provider) IDPLoginURL() string {
	return p.idpLoginURL
}
