package handlers

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/auth"
	"github.com/diewo77/emotion-tracker/httpx"
	"github.com/diewo77/emotion-tracker/internal/models"
	"github.com/diewo77/emotion-tracker/validation"
)

// AuthHandler serves registration, login and the caller's own profile.
type AuthHandler struct {
	DB     *gorm.DB
	Issuer *auth.Issuer
}

func NewAuthHandler(db *gorm.DB, issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{DB: db, Issuer: issuer}
}

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input registerInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Role == "" {
		input.Role = models.RoleUser
	}

	v := validation.Violations{}
	validation.Required("username", input.Username, v)
	validation.Required("email", input.Email, v)
	validation.Email("email", input.Email, v)
	validation.Required("password", input.Password, v)
	if input.Password != "" {
		validation.MinLen("password", input.Password, 8, v)
	}
	validation.OneOf("role", input.Role, []string{models.RoleUser, models.RoleClinician}, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var count int64
	h.DB.Model(&models.User{}).Where("username = ?", input.Username).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "username_taken", nil)
		return
	}
	h.DB.Model(&models.User{}).Where("email = ?", input.Email).Count(&count)
	if count > 0 {
		httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		// a concurrent registration can still trip the unique constraints
		httpx.JSONError(w, http.StatusConflict, "user_exists", nil)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"user_id": user.ID})
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /login and returns the bearer credential.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Username == "" || input.Password == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
			validation.Violations{"username": "required", "password": "required"})
		return
	}

	var user models.User
	if err := h.DB.Where("username = ?", input.Username).First(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}

	token, err := h.Issuer.Issue(user.ID)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

// Profile handles GET /profile.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type updateProfileInput struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UpdateProfile handles PUT /profile. Only email and password are mutable.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}

	var input updateProfileInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	updates := map[string]any{}
	if input.Email != nil {
		v := validation.Violations{}
		validation.Required("email", *input.Email, v)
		validation.Email("email", *input.Email, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		var count int64
		h.DB.Model(&models.User{}).Where("email = ? AND id <> ?", *input.Email, uid).Count(&count)
		if count > 0 {
			httpx.JSONError(w, http.StatusConflict, "email_taken", nil)
			return
		}
		updates["email"] = *input.Email
	}
	if input.Password != nil {
		v := validation.Violations{}
		validation.MinLen("password", *input.Password, 8, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		updates["password_hash"] = string(hash)
	}
	if len(updates) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "nothing_to_update", nil)
		return
	}

	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "profile updated"})
}
