// Package identity resolves the opaque user identity that owns a ledger.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"neotrade/src/model"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredential = errors.New("invalid credential")

// IdentityError reports a failed resolution. Ledger operations stay disabled
// for the caller until a later resolution succeeds.
type IdentityError struct {
	Reason string
	Err    error
}

func (e *IdentityError) Error() string {
	if e.Err == nil {
		return "identity: " + e.Reason
	}
	return fmt.Sprintf("identity: %s: %v", e.Reason, e.Err)
}

func (e *IdentityError) Unwrap() error { return e.Err }

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, tenant string, id string) (*model.User, error)
	UpdateTokenHash(ctx context.Context, tenant string, id string, tokenHash string) error
}

// Grant is a resolved identity. Credential is only set when a new credential
// was issued by the call; it is never stored in clear.
type Grant struct {
	Identity   model.Identity
	Credential string
}

type Provider struct {
	tenant string
	users  UserStore
	cost   int
	cache  *credentialCache
	log    *logger.Entry
}

func NewProvider(tenant string, users UserStore) *Provider {
	return &Provider{
		tenant: tenant,
		users:  users,
		cost:   bcrypt.DefaultCost,
		log:    logger.WithFields(logger.Fields{"component": "identity", "tenant": tenant}),
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (p *Provider) WithCost(cost int) *Provider {
	cp := *p
	cp.cost = cost
	return &cp
}

// WithCacheTTL keeps verified credentials for ttl so repeated requests skip
// bcrypt. Rotation through this provider drops the user's entries at once;
// rotation elsewhere takes effect after at most ttl. Zero disables the cache.
func (p *Provider) WithCacheTTL(ttl time.Duration) *Provider {
	cp := *p
	cp.cache = newCredentialCache(ttl)
	return &cp
}

// Resolve verifies a "<userID>.<secret>" credential. An empty credential signs
// in a new anonymous user and issues a credential for it.
func (p *Provider) Resolve(ctx context.Context, credential string) (*Grant, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return p.signInAnonymously(ctx)
	}

	userID, secret, ok := strings.Cut(credential, ".")
	if !ok || userID == "" || secret == "" {
		return nil, &IdentityError{Reason: "malformed credential", Err: ErrInvalidCredential}
	}

	if id, ok := p.cache.get(credential); ok {
		return &Grant{Identity: id}, nil
	}

	user, err := p.users.GetUserByID(ctx, p.tenant, userID)
	if err != nil {
		p.log.WithError(err).WithField("user", userID).Error("failed to load user")
		return nil, &IdentityError{Reason: "user lookup failed", Err: err}
	}
	if user == nil || user.TokenHash == "" {
		return nil, &IdentityError{Reason: "unknown user", Err: ErrInvalidCredential}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(secret)); err != nil {
		p.log.WithField("user", userID).Warn("credential mismatch")
		return nil, &IdentityError{Reason: "credential mismatch", Err: ErrInvalidCredential}
	}

	id := identityOf(user)
	p.cache.put(credential, id)
	return &Grant{Identity: id}, nil
}

// Issue rotates the credential of an existing user, or creates a named user
// when userID is empty. Previous credentials stop working.
func (p *Provider) Issue(ctx context.Context, userID string) (*Grant, error) {
	secret, hash, err := p.newSecret()
	if err != nil {
		return nil, err
	}

	userID = strings.TrimSpace(userID)
	var user *model.User
	if userID == "" {
		user = &model.User{Tenant: p.tenant, TokenHash: hash}
		if err := p.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	} else {
		user, err = p.users.GetUserByID(ctx, p.tenant, userID)
		if err != nil {
			return nil, fmt.Errorf("load user %s: %w", userID, err)
		}
		if user == nil {
			return nil, &IdentityError{Reason: "unknown user", Err: ErrInvalidCredential}
		}
		if err := p.users.UpdateTokenHash(ctx, p.tenant, user.ID, hash); err != nil {
			return nil, fmt.Errorf("store credential: %w", err)
		}
		p.cache.forget(user.ID)
	}

	p.log.WithField("user", user.ID).Info("credential issued")
	return &Grant{Identity: identityOf(user), Credential: user.ID + "." + secret}, nil
}

func (p *Provider) signInAnonymously(ctx context.Context) (*Grant, error) {
	secret, hash, err := p.newSecret()
	if err != nil {
		return nil, &IdentityError{Reason: "anonymous sign-in failed", Err: err}
	}

	user := &model.User{Tenant: p.tenant, Anonymous: true, TokenHash: hash}
	if err := p.users.Create(ctx, user); err != nil {
		p.log.WithError(err).Error("failed to create anonymous user")
		return nil, &IdentityError{Reason: "anonymous sign-in failed", Err: err}
	}

	p.log.WithField("user", user.ID).Info("anonymous user signed in")
	return &Grant{Identity: identityOf(user), Credential: user.ID + "." + secret}, nil
}

// newSecret returns a random secret and its bcrypt hash.
func (p *Provider) newSecret() (string, string, error) {
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.cost)
	if err != nil {
		return "", "", fmt.Errorf("hash credential: %w", err)
	}
	return secret, string(hash), nil
}

func identityOf(u *model.User) model.Identity {
	return model.Identity{Tenant: u.Tenant, UserID: u.ID, Anonymous: u.Anonymous}
}
