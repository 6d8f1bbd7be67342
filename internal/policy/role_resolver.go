package policy

import (
	"context"

	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/gate"
	"github.com/diewo77/emotion-tracker/internal/models"
)

// Profiles derived from the role tag on User. Clinicians manage their own
// patients and analyses; plain users hold no resource grants and can only
// touch their own profile (which is self-scoped, not gated).
var (
	clinicianProfile = gate.NewStaticProfile(models.RoleClinician,
		gate.Permission("patient:*"),
		gate.Permission("analysis:*"),
	)
	userProfile = gate.NewStaticProfile(models.RoleUser)
)

// RoleProfileResolver maps a user id to the profile for its role tag.
// Implements gate.ProfileResolver for uint subjects.
type RoleProfileResolver struct {
	DB *gorm.DB
}

// NewRoleProfileResolver creates a database-backed resolver.
func NewRoleProfileResolver(db *gorm.DB) *RoleProfileResolver {
	return &RoleProfileResolver{DB: db}
}

// Resolve looks up the user's role and returns the matching profile.
// Unknown users resolve to nil, which the gate treats as denied.
func (r *RoleProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Select("id", "role").First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	if user.Role == models.RoleClinician {
		return clinicianProfile, nil
	}
	return userProfile, nil
}
