package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sshwebca/sshwebca/internal/models"
)

// CertRepository handles certificate record data access
type CertRepository struct {
	db *sql.DB
}

// NewCertRepository creates a new certificate repository
func NewCertRepository(db *sql.DB) *CertRepository {
	return &CertRepository{db: db}
}

// Upsert persists a certificate record. A record with ID zero is inserted and
// receives a freshly assigned id; a record with a nonzero ID is updated in
// place, preserving the id. The UNIQUE constraint on user_id keeps a user at
// one current certificate.
func (r *CertRepository) Upsert(cert *models.CertificateRecord) error {
	payload, err := json.Marshal(cert.Payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerializePayload, err)
	}

	if cert.ID == 0 {
		query := `
			INSERT INTO certificates (user_id, serial_number, public_key_fp, payload)
			VALUES (?, ?, ?, ?)
		`

		result, err := r.db.Exec(query,
			cert.UserID,
			int64(cert.SerialNumber),
			cert.PublicKeyFP,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("failed to create certificate record: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		cert.ID = id
		cert.IssuedAt = time.Now()
		cert.UpdatedAt = cert.IssuedAt

		return nil
	}

	query := `
		UPDATE certificates
		SET user_id = ?, serial_number = ?, public_key_fp = ?, payload = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.Exec(query,
		cert.UserID,
		int64(cert.SerialNumber),
		cert.PublicKeyFP,
		string(payload),
		cert.ID,
	); err != nil {
		return fmt.Errorf("failed to update certificate record: %w", err)
	}

	cert.UpdatedAt = time.Now()

	return nil
}

// GetByUserID retrieves the current certificate record for a user
func (r *CertRepository) GetByUserID(userID int64) (*models.CertificateRecord, error) {
	query := `
		SELECT id, user_id, serial_number, public_key_fp, payload, issued_at, updated_at
		FROM certificates
		WHERE user_id = ?
	`

	cert := &models.CertificateRecord{}
	var serial int64
	var payload string

	err := r.db.QueryRow(query, userID).Scan(
		&cert.ID,
		&cert.UserID,
		&serial,
		&cert.PublicKeyFP,
		&payload,
		&cert.IssuedAt,
		&cert.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("certificate for user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	cert.SerialNumber = uint64(serial)

	if err := json.Unmarshal([]byte(payload), &cert.Payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializePayload, err)
	}

	return cert, nil
}
