package policy

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/auth"
	"github.com/diewo77/emotion-tracker/gate"
)

// Resource type names registered on the gate.
const (
	ResourcePatient  = "patient"
	ResourceAnalysis = "analysis"
)

// AuthGate is the single authorization checkpoint for the whole API.
// Every handler funnels its access decision through Authorize; no route
// compares clinician ids on its own.
type AuthGate struct {
	Gate          *gate.Gate[uint]
	CacheResolver *gate.CachedResolver[uint]
}

// NewAuthGate wires the role resolver (with TTL caching) and registers the
// ownership policy for both resource types.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration) *AuthGate {
	cached := gate.NewCachedResolver[uint](NewRoleProfileResolver(db), cacheTTL)
	g := gate.New[uint](cached)

	ownership := NewOwnershipPolicy()
	g.Register(ResourcePatient, ownership)
	g.Register(ResourceAnalysis, ownership)

	return &AuthGate{Gate: g, CacheResolver: cached}
}

// Authorize checks whether the context's user may perform action on the
// resource. A nil resource checks the role permission alone (list/create).
func (ag *AuthGate) Authorize(ctx context.Context, action gate.Action, resourceType string, resource any) error {
	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		return gate.ErrDenied
	}
	return ag.Gate.Authorize(ctx, userID, action, resourceType, resource)
}

// Can is a convenience wrapper returning bool instead of error.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	return ag.Authorize(ctx, action, resourceType, resource) == nil
}

// InvalidateUser clears the cached profile for one user. Call after a role
// change.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.CacheResolver.Invalidate(userID)
}
