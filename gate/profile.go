package gate

import "context"

// Profile is a named set of permissions.
type Profile interface {
	Name() string
	HasPermission(permission Permission) bool
	Permissions() []Permission
}

// ProfileResolver resolves a subject to their profile. Returning a nil
// profile (without error) means the subject has no grants at all.
type ProfileResolver[U any] interface {
	Resolve(ctx context.Context, subject U) (Profile, error)
}

// StaticProfile is an in-memory profile. The policy layer builds these from
// role tags; tests build them directly.
type StaticProfile struct {
	name        string
	permissions map[Permission]bool
}

// NewStaticProfile creates a profile with the given permissions.
func NewStaticProfile(name string, permissions ...Permission) *StaticProfile {
	p := &StaticProfile{
		name:        name,
		permissions: make(map[Permission]bool, len(permissions)),
	}
	for _, perm := range permissions {
		p.permissions[perm] = true
	}
	return p
}

func (p *StaticProfile) Name() string { return p.name }

// HasPermission checks the requested permission with wildcard matching.
func (p *StaticProfile) HasPermission(requested Permission) bool {
	for perm := range p.permissions {
		if perm.Matches(requested) {
			return true
		}
	}
	return false
}

// Permissions returns every permission in this profile.
func (p *StaticProfile) Permissions() []Permission {
	perms := make([]Permission, 0, len(p.permissions))
	for perm := range p.permissions {
		perms = append(perms, perm)
	}
	return perms
}

// StaticResolver maps subjects to fixed profiles. Test helper.
type StaticResolver[U comparable] struct {
	profiles map[U]Profile
}

// NewStaticResolver creates an empty static resolver.
func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{profiles: make(map[U]Profile)}
}

// Set assigns a profile to a subject.
func (r *StaticResolver[U]) Set(subject U, profile Profile) {
	r.profiles[subject] = profile
}

// Resolve returns the assigned profile, or nil when none is set.
func (r *StaticResolver[U]) Resolve(_ context.Context, subject U) (Profile, error) {
	if profile, ok := r.profiles[subject]; ok {
		return profile, nil
	}
	return nil, nil
}
