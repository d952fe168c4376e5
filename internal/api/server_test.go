package api

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/sshwebca/sshwebca/internal/auth"
	"github.com/sshwebca/sshwebca/internal/ca"
	"github.com/sshwebca/sshwebca/internal/config"
	"github.com/sshwebca/sshwebca/internal/db"
	"github.com/sshwebca/sshwebca/internal/db/repository"
	"github.com/sshwebca/sshwebca/internal/session"
)

type testServer struct {
	server   *Server
	database *db.DB
	users    *repository.UserRepository
	certs    *repository.CertRepository
	store    *session.MemoryStore
	caKey    *ca.SigningKey
}

func newTestServer(t *testing.T, principals []string) *testServer {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshSigner, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	signingKey := &ca.SigningKey{Signer: sshSigner}
	signer := ca.New(signingKey, principals, time.Hour)

	users := repository.NewUserRepository(database.DB)
	certs := repository.NewCertRepository(database.DB)
	bridge := auth.NewBridge(users)

	store := session.NewMemoryStore()
	sessions := session.NewManager(store, time.Hour)

	cfg := &config.Config{}
	cfg.Server.ListenAddr = "127.0.0.1:0"
	cfg.Logging.Level = "error"

	server := NewServer(cfg, signingKey, signer, nil, bridge, sessions, certs)

	return &testServer{
		server:   server,
		database: database,
		users:    users,
		certs:    certs,
		store:    store,
		caKey:    signingKey,
	}
}

// loginAs provisions a user and plants a live session for it, standing in
// for a completed SAML exchange
func (ts *testServer) loginAs(t *testing.T, username string) (int64, *http.Cookie) {
	t.Helper()

	user, err := ts.users.GetOrCreate(username)
	require.NoError(t, err)

	id, err := session.GenerateID()
	require.NoError(t, err)

	err = ts.store.Create(context.Background(), session.Session{
		ID:        id,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	return user.ID, &http.Cookie{Name: session.CookieName, Value: id}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	return w
}

func testPublicKeyText(t *testing.T) string {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	return string(ssh.MarshalAuthorizedKey(sshPub))
}

func (ts *testServer) certCount(t *testing.T) int {
	t.Helper()

	var count int
	require.NoError(t, ts.database.QueryRow(`SELECT COUNT(*) FROM certificates`).Scan(&count))
	return count
}

func TestSignWithoutSessionIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key",
		strings.NewReader(testPublicKeyText(t)))
	w := ts.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The gate rejected before the signer or store were touched
	assert.Equal(t, 0, ts.certCount(t))
	users, err := ts.users.List()
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSignMalformedKeyIsClientError(t *testing.T) {
	ts := newTestServer(t, nil)
	_, cookie := ts.loginAs(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key",
		strings.NewReader("not an ssh key"))
	req.AddCookie(cookie)
	w := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, ts.certCount(t))
}

func TestSignIssuesAndRecordsCertificate(t *testing.T) {
	ts := newTestServer(t, nil)
	userID, cookie := ts.loginAs(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key",
		strings.NewReader(testPublicKeyText(t)))
	req.AddCookie(cookie)
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)

	cert, err := ca.ParseCertificate(w.Body.String())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cert.KeyId, "alice-"))
	require.NoError(t, ca.ValidateCertificate(cert, ts.caKey.PublicKey()))

	stored, err := ts.certs.GetByUserID(userID)
	require.NoError(t, err)
	assert.Equal(t, cert.Serial, stored.SerialNumber)
	assert.Equal(t, 1, ts.certCount(t))
}

func TestReissueReplacesCurrentCertificate(t *testing.T) {
	ts := newTestServer(t, nil)
	userID, cookie := ts.loginAs(t, "alice")

	keyText := testPublicKeyText(t)

	first := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key", strings.NewReader(keyText))
	first.AddCookie(cookie)
	require.Equal(t, http.StatusOK, ts.do(first).Code)

	firstStored, err := ts.certs.GetByUserID(userID)
	require.NoError(t, err)

	second := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key", strings.NewReader(keyText))
	second.AddCookie(cookie)
	require.Equal(t, http.StatusOK, ts.do(second).Code)

	secondStored, err := ts.certs.GetByUserID(userID)
	require.NoError(t, err)

	// Same record, new content
	assert.Equal(t, firstStored.ID, secondStored.ID)
	assert.NotEqual(t, firstStored.SerialNumber, secondStored.SerialNumber)
	assert.Equal(t, 1, ts.certCount(t))
}

func TestSignRespectsPrincipalPolicy(t *testing.T) {
	ts := newTestServer(t, []string{"admin", "deploy"})
	_, cookie := ts.loginAs(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key",
		strings.NewReader(testPublicKeyText(t)))
	req.AddCookie(cookie)
	w := ts.do(req)

	require.Equal(t, http.StatusOK, w.Code)

	cert, err := ca.ParseCertificate(w.Body.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "deploy"}, cert.ValidPrincipals)
}

func TestLogoutWithoutSessionIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/logout", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t, nil)
	_, cookie := ts.loginAs(t, "alice")

	logout := httptest.NewRequest(http.MethodGet, "/logout", nil)
	logout.AddCookie(cookie)
	require.Equal(t, http.StatusOK, ts.do(logout).Code)

	// The old session no longer opens the gate
	sign := httptest.NewRequest(http.MethodPost, "/api/sign_ssh_public_key",
		strings.NewReader(testPublicKeyText(t)))
	sign.AddCookie(cookie)
	assert.Equal(t, http.StatusUnauthorized, ts.do(sign).Code)
}

func TestCAPublicKeyIsServedWithoutSession(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/ca_public_key", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ts.caKey.PublicKeyString(), w.Body.String())
}

func TestLandingPage(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nothing here yet")
}

func TestMissingSAMLResponseFieldIsClientError(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("foo=bar"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}
