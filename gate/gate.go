// Package gate is a central authorization checkpoint. A Gate combines two
// layers: profile permissions ("may this subject act on this resource type at
// all?") and per-resource policies ("does this subject own this particular
// resource?"). Handlers call Authorize once per operation instead of
// re-implementing ownership comparisons at every route.
//
// The subject type is generic so the same gate works with numeric user ids,
// user structs, or token claims.
package gate

import "context"

// Gate resolves the subject's profile, checks the resource:action permission,
// then runs the registered resource policy when a concrete resource is given.
type Gate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// New creates a gate backed by the given profile resolver.
func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register adds a policy for a resource type (e.g. "patient"). Overwrites any
// existing policy for that type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize checks, in order:
//  1. subject is valid (non-zero)
//  2. the subject's profile grants resourceType:action
//  3. the registered policy accepts the resource, when one is provided
//
// Returns ErrDenied on any failing step. A nil resource skips step 3; list and
// create checks pass nil since there is no row to own yet.
func (g *Gate[U]) Authorize(ctx context.Context, subject U, action Action, resourceType string, resource any) error {
	var zero U
	if subject == zero {
		return ErrDenied
	}

	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return ErrDenied
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrDenied
	}

	if resource != nil {
		if p, ok := g.policies[resourceType]; ok {
			if !p.Can(ctx, subject, action, resource) {
				return ErrDenied
			}
		}
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, subject U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, subject, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission, skipping any resource policy.
// Useful before a specific resource has been loaded.
func (g *Gate[U]) CanProfile(ctx context.Context, subject U, action Action, resourceType string) bool {
	var zero U
	if subject == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, subject)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}
