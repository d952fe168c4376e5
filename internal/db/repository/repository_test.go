package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshwebca/sshwebca/internal/db"
	"github.com/sshwebca/sshwebca/internal/models"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database))
	return database
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	repo := NewUserRepository(testDB(t).DB)

	first, err := repo.GetOrCreate("alice")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := repo.GetOrCreate("alice")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	users, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestGetByUsernameExactMatch(t *testing.T) {
	repo := NewUserRepository(testDB(t).DB)

	_, err := repo.GetOrCreate("alice")
	require.NoError(t, err)

	_, err = repo.GetByUsername("Alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByUsername("ali")
	assert.ErrorIs(t, err, ErrNotFound)

	user, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t).DB)

	_, err := repo.GetByID(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testRecord(userID int64, serial uint64) *models.CertificateRecord {
	return &models.CertificateRecord{
		UserID:       userID,
		SerialNumber: serial,
		PublicKeyFP:  "SHA256:abcdef",
		Payload: models.CertificatePayload{
			Certificate:  "ssh-ed25519-cert-v01@openssh.com AAAA...",
			KeyID:        "alice-1",
			SerialNumber: serial,
			Subject:      "alice",
			ValidAfter:   100,
			ValidBefore:  200,
			CertType:     "user",
		},
	}
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	database := testDB(t)
	users := NewUserRepository(database.DB)
	certs := NewCertRepository(database.DB)

	user, err := users.GetOrCreate("alice")
	require.NoError(t, err)

	rec := testRecord(user.ID, 1)
	require.NoError(t, certs.Upsert(rec))
	require.NotZero(t, rec.ID)
	firstID := rec.ID

	// Update in place, preserving the id
	rec.SerialNumber = 2
	rec.Payload.SerialNumber = 2
	rec.Payload.KeyID = "alice-2"
	require.NoError(t, certs.Upsert(rec))
	assert.Equal(t, firstID, rec.ID)

	stored, err := certs.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, firstID, stored.ID)
	assert.Equal(t, uint64(2), stored.SerialNumber)
	assert.Equal(t, "alice-2", stored.Payload.KeyID)

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM certificates`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUpsertRoundTripsLargeSerial(t *testing.T) {
	database := testDB(t)
	users := NewUserRepository(database.DB)
	certs := NewCertRepository(database.DB)

	user, err := users.GetOrCreate("alice")
	require.NoError(t, err)

	// Serial with the high bit set must survive the integer column
	const serial = uint64(0xF000000000000001)
	rec := testRecord(user.ID, serial)
	require.NoError(t, certs.Upsert(rec))

	stored, err := certs.GetByUserID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, serial, stored.SerialNumber)
}

func TestOneCertificatePerUser(t *testing.T) {
	database := testDB(t)
	users := NewUserRepository(database.DB)
	certs := NewCertRepository(database.DB)

	user, err := users.GetOrCreate("alice")
	require.NoError(t, err)

	require.NoError(t, certs.Upsert(testRecord(user.ID, 1)))

	// A second insert for the same owner violates the unique constraint
	err = certs.Upsert(testRecord(user.ID, 2))
	assert.Error(t, err)
}

func TestGetByUserIDNotFound(t *testing.T) {
	certs := NewCertRepository(testDB(t).DB)

	_, err := certs.GetByUserID(7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascadesCertificate(t *testing.T) {
	database := testDB(t)
	users := NewUserRepository(database.DB)
	certs := NewCertRepository(database.DB)

	user, err := users.GetOrCreate("alice")
	require.NoError(t, err)
	require.NoError(t, certs.Upsert(testRecord(user.ID, 1)))

	require.NoError(t, users.Delete(user.ID))

	_, err = certs.GetByUserID(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
