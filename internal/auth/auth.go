// Package auth resolves bearer tokens to caller identities and decides
// what each identity may do. Classification re-queries storage on every
// call, so deleting or deactivating a credential takes effect on the next
// request; there is no cache to invalidate.
package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// MachineKeyPrefix namespaces machine API keys. Only tokens carrying this
// prefix are ever looked up against the machine table.
const MachineKeyPrefix = "machine_"

// UserTokenPrefix namespaces generated operator tokens. It is cosmetic:
// classification matches user tokens by exact equality, not prefix.
const UserTokenPrefix = "user_"

// Kind is the identity class a token resolves to.
type Kind int

const (
	KindNone Kind = iota
	KindAdmin
	KindUser
	KindMachine
)

// Identity is the resolved caller. Username is set for KindUser,
// MachineID for KindMachine.
type Identity struct {
	Kind      Kind
	Username  string
	MachineID int64
}

// CredentialSource is the storage the classifier reads. Implementations
// return an error for "no such row" as well as for storage faults; the
// classifier treats both the same way.
type CredentialSource interface {
	MachineIDByAPIKey(ctx context.Context, apiKey string) (int64, error)
	UsernameByToken(ctx context.Context, token string) (string, error)
}

// Classifier resolves bearer tokens. The admin token is a standing
// bootstrap credential injected from configuration; it cannot be revoked
// at runtime, which is a documented property of this design.
type Classifier struct {
	source     CredentialSource
	adminToken string
}

// NewClassifier creates a Classifier over the given credential source.
func NewClassifier(source CredentialSource, adminToken string) *Classifier {
	return &Classifier{source: source, adminToken: adminToken}
}

// Classify resolves token to exactly one identity. The rule order is
// security-relevant and fixed: admin sentinel first, then the machine key
// namespace, then user tokens. A storage fault at any rung degrades to
// the next rung rather than propagating, so a transient fault can deny
// access but never misattribute an identity.
func (c *Classifier) Classify(ctx context.Context, token string) Identity {
	if token != "" && token == c.adminToken {
		return Identity{Kind: KindAdmin}
	}

	if strings.HasPrefix(token, MachineKeyPrefix) {
		if id, err := c.source.MachineIDByAPIKey(ctx, token); err == nil {
			return Identity{Kind: KindMachine, MachineID: id}
		}
	}

	if username, err := c.source.UsernameByToken(ctx, token); err == nil {
		return Identity{Kind: KindUser, Username: username}
	}

	return Identity{Kind: KindNone}
}

// GenerateMachineAPIKey returns a fresh machine credential.
func GenerateMachineAPIKey() string {
	return MachineKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateUserToken returns a fresh operator session token.
func GenerateUserToken() string {
	return UserTokenPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
