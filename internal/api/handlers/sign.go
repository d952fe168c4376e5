package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/ssh"

	"github.com/sshwebca/sshwebca/internal/api/middleware"
	"github.com/sshwebca/sshwebca/internal/auth"
	"github.com/sshwebca/sshwebca/internal/ca"
	"github.com/sshwebca/sshwebca/internal/db/repository"
	"github.com/sshwebca/sshwebca/internal/models"
	"github.com/sshwebca/sshwebca/pkg/sshutil"
)

// SignHandler handles certificate issuance
type SignHandler struct {
	ca     *ca.CA
	bridge *auth.Bridge
	certs  *repository.CertRepository
}

// NewSignHandler creates a new issuance handler
func NewSignHandler(signer *ca.CA, bridge *auth.Bridge, certs *repository.CertRepository) *SignHandler {
	return &SignHandler{
		ca:     signer,
		bridge: bridge,
		certs:  certs,
	}
}

// SignPublicKey signs the submitted public key for the session's user and
// records the result as the user's current certificate
// POST /api/sign_ssh_public_key
func (h *SignHandler) SignPublicKey(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}

	pubKey, _, _, _, err := ssh.ParseAuthorizedKey(body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_public_key", "Body is not a valid SSH public key")
		return
	}

	userID := c.GetInt64(middleware.UserIDKey)

	user, err := h.bridge.ResolveByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusUnauthorized, "unauthorized", "Session user no longer exists")
			return
		}

		log.Printf("Failed to resolve session user %d: %v", userID, err)
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to resolve user")
		return
	}

	cert, err := h.ca.Sign(pubKey, user.Username)
	if err != nil {
		log.Printf("Failed to sign key for %s: %v", user.Username, err)
		RespondError(c, http.StatusInternalServerError, "signing_failed", "Failed to sign public key")
		return
	}

	record := &models.CertificateRecord{
		UserID:       user.ID,
		SerialNumber: cert.Serial,
		PublicKeyFP:  sshutil.Fingerprint(pubKey),
		Payload: models.CertificatePayload{
			Certificate:  ca.MarshalCertificate(cert),
			KeyID:        cert.KeyId,
			SerialNumber: cert.Serial,
			Subject:      user.Username,
			Principals:   cert.ValidPrincipals,
			ValidAfter:   cert.ValidAfter,
			ValidBefore:  cert.ValidBefore,
			CertType:     "user",
		},
	}

	// A user keeps a single current certificate: reissuing replaces the
	// previous record in place instead of appending history.
	if existing, err := h.certs.GetByUserID(user.ID); err == nil {
		record.ID = existing.ID
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("Failed to look up current certificate for %s: %v", user.Username, err)
		RespondError(c, http.StatusInternalServerError, "storage_failed", "Failed to store certificate")
		return
	}

	if err := h.certs.Upsert(record); err != nil {
		log.Printf("Failed to store certificate for %s: %v", user.Username, err)
		RespondError(c, http.StatusInternalServerError, "storage_failed", "Failed to store certificate")
		return
	}

	log.Printf("Issued certificate %s to %s", cert.KeyId, user.Username)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(record.Payload.Certificate))
}
