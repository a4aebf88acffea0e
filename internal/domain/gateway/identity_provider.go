// Package gateway declares the outbound collaborators the application layer
// talks to: the identity provider, mail delivery, profile search and avatar
// storage.
package gateway

import "context"

// IdentityProvider is the part of the identity provider the onboarding saga
// depends on. DeleteIdentity is only used for compensation.
type IdentityProvider interface {
	DeleteIdentity(ctx context.Context, id string) error
}
