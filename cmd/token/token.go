// Package token issues pre-issued credentials for terminal users.
package token

import (
	"context"
	"fmt"
	"io"

	"neotrade/src/identity"
	"neotrade/src/repository"

	"gorm.io/gorm"
)

type Issuer struct {
	DB  *gorm.DB
	Out io.Writer
}

// Issue creates a new user when userID is empty, otherwise rotates the
// credential of that user, and prints the credential once.
func (i *Issuer) Issue(ctx context.Context, userID string) error {
	cfg := GetConfig()
	provider := identity.NewProvider(cfg.AppID, repository.NewUserRepositoryWithDB(i.DB)).
		WithCost(identity.GetConfig().BcryptCost)
	return i.issueWith(ctx, provider, userID)
}

func (i *Issuer) issueWith(ctx context.Context, provider *identity.Provider, userID string) error {
	grant, err := provider.Issue(ctx, userID)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(i.Out, "user_id: %s\ntoken:   %s\n", grant.Identity.UserID, grant.Credential)
	return err
}
