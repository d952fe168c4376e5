// Package auth maps validated federated assertions onto local user records.
package auth

import (
	"fmt"

	"github.com/crewjam/saml"

	"github.com/sshwebca/sshwebca/internal/db/repository"
	"github.com/sshwebca/sshwebca/internal/models"
)

// MissingSubjectError indicates an assertion without a subject name-id. It
// carries the assertion for diagnostics; no user row is created.
type MissingSubjectError struct {
	Assertion *saml.Assertion
}

func (e *MissingSubjectError) Error() string {
	return "assertion carries no subject name-id"
}

// Bridge turns assertions into authenticated local users. First login for a
// subject provisions the account; there is no separate registration step.
type Bridge struct {
	users *repository.UserRepository
}

// NewBridge creates an identity bridge over the user repository
func NewBridge(users *repository.UserRepository) *Bridge {
	return &Bridge{users: users}
}

// Authenticate resolves an already-validated assertion to a local user,
// creating the user row on first sight of the subject identifier. Repeated
// calls for the same subject resolve to the same user id.
func (b *Bridge) Authenticate(assertion *saml.Assertion) (*models.User, error) {
	username := subjectName(assertion)
	if username == "" {
		return nil, &MissingSubjectError{Assertion: assertion}
	}

	user, err := b.users.GetOrCreate(username)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %q: %w", username, err)
	}

	return user, nil
}

// ResolveByID materializes the user bound to a session
func (b *Bridge) ResolveByID(id int64) (*models.User, error) {
	return b.users.GetByID(id)
}

// subjectName extracts the stable subject identifier from an assertion,
// returning empty when the subject or its name-id is absent
func subjectName(assertion *saml.Assertion) string {
	if assertion == nil || assertion.Subject == nil || assertion.Subject.NameID == nil {
		return ""
	}
	return assertion.Subject.NameID.Value
}
