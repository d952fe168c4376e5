package ca

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/crypto/ssh"
)

// CA signs SSH public keys into user certificates. Its fields are fixed at
// construction and shared read-only, so a single CA is safe for concurrent use.
type CA struct {
	key             *SigningKey
	validPrincipals []string
	validityPeriod  time.Duration
}

// New creates a CA with the given issuance policy. A nil or empty principal
// list means issued certificates accept any principal; this is a deliberate
// operator choice, not a safe default.
func New(key *SigningKey, validPrincipals []string, validityPeriod time.Duration) *CA {
	principals := make([]string, len(validPrincipals))
	copy(principals, validPrincipals)

	return &CA{
		key:             key,
		validPrincipals: principals,
		validityPeriod:  validityPeriod,
	}
}

// ValidityPeriod returns the configured certificate lifetime
func (ca *CA) ValidityPeriod() time.Duration {
	return ca.validityPeriod
}

// Sign issues a user certificate for the given public key and subject. The
// validity window starts now and lasts the configured period, the serial is
// drawn from a cryptographically secure source, and the key id has the form
// "{subject}-{serial}". Sign has no side effects.
func (ca *CA) Sign(pubKey ssh.PublicKey, subject string) (*ssh.Certificate, error) {
	now := time.Now()
	if now.Unix() < 0 {
		return nil, fmt.Errorf("system clock is before the unix epoch")
	}

	validAfter := uint64(now.Unix())
	validBefore := validAfter + uint64(ca.validityPeriod.Seconds())

	serial, err := randomSerial()
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	cert := &ssh.Certificate{
		Key:             pubKey,
		Serial:          serial,
		CertType:        ssh.UserCert,
		KeyId:           fmt.Sprintf("%s-%d", subject, serial),
		ValidPrincipals: ca.validPrincipals,
		ValidAfter:      validAfter,
		ValidBefore:     validBefore,
		// Standard SSH certificate permissions/extensions
		Permissions: ssh.Permissions{
			Extensions: map[string]string{
				"permit-X11-forwarding":   "",
				"permit-agent-forwarding": "",
				"permit-port-forwarding":  "",
				"permit-pty":              "",
				"permit-user-rc":          "",
			},
		},
	}

	if err := cert.SignCert(rand.Reader, ca.key.Signer); err != nil {
		return nil, fmt.Errorf("failed to sign certificate: %w", err)
	}

	return cert, nil
}

// randomSerial draws a 64-bit serial from the secure random source. Collisions
// are treated as negligible and not checked against prior serials.
func randomSerial() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// MarshalCertificate renders a certificate in authorized_keys format without
// the trailing newline
func MarshalCertificate(cert *ssh.Certificate) string {
	return string(bytes.TrimSpace(ssh.MarshalAuthorizedKey(cert)))
}

// ParseCertificate parses an SSH certificate from authorized_keys format
func ParseCertificate(certData string) (*ssh.Certificate, error) {
	pubKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(certData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	cert, ok := pubKey.(*ssh.Certificate)
	if !ok {
		return nil, fmt.Errorf("not a certificate")
	}

	return cert, nil
}

// ValidateCertificate verifies that a certificate was signed by the CA
func ValidateCertificate(cert *ssh.Certificate, caPubKey ssh.PublicKey) error {
	checker := &ssh.CertChecker{
		IsUserAuthority: func(auth ssh.PublicKey) bool {
			return bytes.Equal(auth.Marshal(), caPubKey.Marshal())
		},
	}

	principal := ""
	if len(cert.ValidPrincipals) > 0 {
		principal = cert.ValidPrincipals[0]
	}

	if err := checker.CheckCert(principal, cert); err != nil {
		return fmt.Errorf("certificate validation failed: %w", err)
	}

	return nil
}
