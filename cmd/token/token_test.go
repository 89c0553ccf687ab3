package token

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"neotrade/src/database"
	"neotrade/src/identity"
	"neotrade/src/repository"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestIssuePrintsUsableCredential(t *testing.T) {
	db, err := database.Open(database.Config{
		Driver:          "sqlite",
		DatabaseURLMain: "file:token_test?mode=memory&cache=shared",
		GormLogLevel:    1,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	provider := identity.NewProvider("neotrade-neo-rules", repository.NewUserRepositoryWithDB(db)).WithCost(bcrypt.MinCost)

	var out bytes.Buffer
	issuer := &Issuer{DB: db, Out: &out}
	require.NoError(t, issuer.issueWith(context.Background(), provider, ""))

	var token string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "token:") {
			token = strings.TrimSpace(strings.TrimPrefix(line, "token:"))
		}
	}
	require.NotEmpty(t, token)

	grant, err := provider.Resolve(context.Background(), token)
	require.NoError(t, err)
	require.False(t, grant.Identity.Anonymous)
}
