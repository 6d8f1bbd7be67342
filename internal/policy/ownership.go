package policy

import (
	"context"

	"github.com/diewo77/emotion-tracker/gate"
)

// Ownable is implemented by resources that belong to a single clinician.
type Ownable interface {
	OwnerID() uint
}

// OwnershipPolicy allows access only when the resource's owning clinician is
// the caller. Resources that do not implement Ownable are denied outright so
// a model can never slip past the guard unchecked.
type OwnershipPolicy struct{}

// NewOwnershipPolicy creates the ownership policy.
func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can reports whether userID owns the resource.
func (p *OwnershipPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	ownable, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return ownable.OwnerID() == userID
}
