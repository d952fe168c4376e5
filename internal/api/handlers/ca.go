package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sshwebca/sshwebca/internal/ca"
)

// CAHandler handles CA-related requests
type CAHandler struct {
	key *ca.SigningKey
}

// NewCAHandler creates a new CA handler
func NewCAHandler(key *ca.SigningKey) *CAHandler {
	return &CAHandler{key: key}
}

// GetCAPublicKey returns the CA public key so hosts can install it as a
// trusted user authority
// GET /api/ca_public_key
func (h *CAHandler) GetCAPublicKey(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(h.key.PublicKeyString()))
}
