package models

import "time"

// CertificateRecord is the latest certificate issued to a user.
// ID zero means the record has not been persisted yet; Upsert assigns it.
type CertificateRecord struct {
	ID           int64              `json:"id"`
	UserID       int64              `json:"user_id"`
	SerialNumber uint64             `json:"serial_number"`
	PublicKeyFP  string             `json:"public_key_fp"`
	Payload      CertificatePayload `json:"payload"`
	IssuedAt     time.Time          `json:"issued_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// CertificatePayload is the serialized form of a signed certificate,
// stored as a JSON column alongside the indexed fields.
type CertificatePayload struct {
	Certificate  string   `json:"certificate"`
	KeyID        string   `json:"key_id"`
	SerialNumber uint64   `json:"serial_number"`
	Subject      string   `json:"subject"`
	Principals   []string `json:"principals,omitempty"`
	ValidAfter   uint64   `json:"valid_after"`
	ValidBefore  uint64   `json:"valid_before"`
	CertType     string   `json:"cert_type"`
}
