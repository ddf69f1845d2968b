package repositories

import (
	"github.com/BradenHooton/gatehouse/internal/models"
)

// CredentialRepository resolves provisioned credentials by username.
// It is populated once at startup and read-only afterwards.
type CredentialRepository struct {
	credentials map[string]models.Credential
}

// NewCredentialRepository builds the table from the provisioned credentials.
// A later duplicate username replaces an earlier one.
func NewCredentialRepository(credentials ...models.Credential) *CredentialRepository {
	table := make(map[string]models.Credential, len(credentials))
	for _, c := range credentials {
		table[c.Username] = c
	}
	return &CredentialRepository{credentials: table}
}

// GetByUsername looks up a credential. Usernames are case-sensitive.
func (r *CredentialRepository) GetByUsername(username string) (*models.Credential, error) {
	c, ok := r.credentials[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}
