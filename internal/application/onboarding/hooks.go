package onboarding

import (
	"context"

	"github.com/collabhub/collabhub/internal/domain/entity"
)

// Hooks are the identity lifecycle callbacks an identity provider
// integration invokes once it has finished its own sign-in protocol.
type Hooks interface {
	// OnIdentityResolved provisions local state for a first-time identity.
	OnIdentityResolved(ctx context.Context, identity entity.ExternalIdentity) (*Outcome, error)
	// OnSignIn refreshes local state for a returning identity.
	OnSignIn(ctx context.Context, identity entity.ExternalIdentity) (*Outcome, error)
}

var _ Hooks = (*Orchestrator)(nil)
