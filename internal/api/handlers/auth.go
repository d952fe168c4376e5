package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshwebca/sshwebca/internal/auth"
	"github.com/sshwebca/sshwebca/internal/session"
	"github.com/sshwebca/sshwebca/internal/sso"
)

// AuthHandler handles login and logout
type AuthHandler struct {
	provider *sso.Provider
	bridge   *auth.Bridge
	sessions *session.Manager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(provider *sso.Provider, bridge *auth.Bridge, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		bridge:   bridge,
		sessions: sessions,
	}
}

// Login consumes a SAML response and establishes a session
// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Malformed form body")
		return
	}

	if c.Request.PostFormValue("SAMLResponse") == "" {
		RespondError(c, http.StatusBadRequest, "missing_saml_response", "SAMLResponse form field is required")
		return
	}

	assertion, err := h.provider.ParseResponse(c.Request)
	if err != nil {
		log.Printf("Rejected SAML response: %v", err)
		RespondError(c, http.StatusUnauthorized, "invalid_assertion", "Assertion could not be validated")
		return
	}

	user, err := h.bridge.Authenticate(assertion)
	if err != nil {
		var missing *auth.MissingSubjectError
		if errors.As(err, &missing) {
			log.Printf("Rejected assertion without subject name-id")
			RespondError(c, http.StatusUnauthorized, "missing_subject", "Assertion carries no subject identifier")
			return
		}

		log.Printf("Failed to resolve assertion subject: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to resolve user")
		return
	}

	if err := h.sessions.Login(c, user.ID); err != nil {
		log.Printf("Failed to establish session for %s: %v", user.Username, err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to establish session")
		return
	}

	log.Printf("User %s successfully authenticated", user.Username)
	c.Status(http.StatusOK)
}

// LoginRedirect points browsers at the IdP
// GET /login
func (h *AuthHandler) LoginRedirect(c *gin.Context) {
	if url := h.provider.IDPLoginURL(); url != "" {
		c.Redirect(http.StatusFound, url)
		return
	}

	c.String(http.StatusOK, "Please sign in from your IdP")
}

// Logout ends the current session
// GET /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		if errors.Is(err, session.ErrNoSession) {
			RespondError(c, http.StatusUnauthorized, "no_session", "No active session")
			return
		}

		log.Printf("Failed to end session: %v", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to end session")
		return
	}

	c.Status(http.StatusOK)
}
