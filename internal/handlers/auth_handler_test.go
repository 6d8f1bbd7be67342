package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/emotion-tracker/auth"
)

func newTestIssuer() *auth.Issuer {
	return auth.NewIssuer("test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())

	body := `{"username":"drsmith","email":"smith@clinic.test","password":"supersecret","role":"clinician"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		UserID uint `json:"user_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.UserID == 0 {
		t.Fatal("expected non-zero user_id")
	}

	req2 := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"drsmith","password":"supersecret"}`))
	w2 := httptest.NewRecorder()
	h.Login(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w2.Code, w2.Body.String())
	}
	var logged struct {
		Token string `json:"token"`
		User  struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if logged.Token == "" {
		t.Fatal("expected token in login response")
	}
	if logged.User.Role != "clinician" {
		t.Fatalf("unexpected role: %s", logged.User.Role)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())
	createUser(t, db, "drsmith", "clinician")

	body := `{"username":"drsmith","email":"other@clinic.test","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "username_taken") {
		t.Fatalf("expected username_taken: %s", w.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())
	createUser(t, db, "drsmith", "clinician")

	body := `{"username":"other","email":"drsmith@test.local","password":"supersecret"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "email_taken") {
		t.Fatalf("expected email_taken: %s", w.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())

	// Short password and bad email
	body := `{"username":"x","email":"not-an-email","password":"short"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Register(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())
	createUser(t, db, "drsmith", "clinician")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"drsmith","password":"wrongpassword"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"ghost","password":"password123"}`))
	w := httptest.NewRecorder()
	h.Login(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestProfileGetAndUpdate(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())
	user := createUser(t, db, "drsmith", "clinician")

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))
	w := httptest.NewRecorder()
	h.Profile(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("profile must not leak password material: %s", w.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(`{"email":"new@clinic.test"}`))
	req2 = req2.WithContext(auth.WithUserID(req2.Context(), user.ID))
	w2 := httptest.NewRecorder()
	h.UpdateProfile(w2, req2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w2.Code, w2.Body.String())
	}

	var reloaded struct{ Email string }
	if err := db.Table("users").Select("email").Where("id = ?", user.ID).Scan(&reloaded).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Email != "new@clinic.test" {
		t.Fatalf("email not updated: %s", reloaded.Email)
	}
}

func TestProfileUpdateEmailConflict(t *testing.T) {
	db := setupTestDB(t)
	h := NewAuthHandler(db, newTestIssuer())
	user := createUser(t, db, "drsmith", "clinician")
	createUser(t, db, "drjones", "clinician")

	req := httptest.NewRequest(http.MethodPut, "/profile", strings.NewReader(`{"email":"drjones@test.local"}`))
	req = req.WithContext(auth.WithUserID(req.Context(), user.ID))
	w := httptest.NewRecorder()
	h.UpdateProfile(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", w.Code, w.Body.String())
	}
}
