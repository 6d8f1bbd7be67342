package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/internal/config"
	"github.com/diewo77/emotion-tracker/internal/models"
)

func setupApp(t *testing.T) *App {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Patient{}, &models.Analysis{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		UploadDir: t.TempDir(),
	}
	app, err := New(db, cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func do(t *testing.T, app *App, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	app := setupApp(t)
	w := do(t, app, http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}

func TestBearerTokenFlow(t *testing.T) {
	app := setupApp(t)

	w := do(t, app, http.MethodPost, "/register", "",
		`{"username":"drsmith","email":"smith@clinic.test","password":"supersecret","role":"clinician"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, app, http.MethodPost, "/login", "", `{"username":"drsmith","password":"supersecret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d: %s", w.Code, w.Body.String())
	}
	var logged struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// No token: 401
	w = do(t, app, http.MethodGet, "/patients", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}

	// Garbage token: 401
	w = do(t, app, http.MethodGet, "/patients", "not-a-token", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}

	// Valid token: full patient round trip
	w = do(t, app, http.MethodPost, "/patients", logged.Token,
		`{"first_name":"Ana","last_name":"Lima","date_of_birth":"1990-04-12"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create patient: expected 201 got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		PatientID uint `json:"patient_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = do(t, app, http.MethodGet, "/patients", logged.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list patients: expected 200 got %d", w.Code)
	}
	var items []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 patient got %d", len(items))
	}

	w = do(t, app, http.MethodGet, "/profile", logged.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200 got %d", w.Code)
	}
	_ = created
}

func TestCrossClinicianIsolation(t *testing.T) {
	app := setupApp(t)

	register := func(name string) string {
		w := do(t, app, http.MethodPost, "/register", "",
			`{"username":"`+name+`","email":"`+name+`@clinic.test","password":"supersecret","role":"clinician"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("register %s: %d %s", name, w.Code, w.Body.String())
		}
		w = do(t, app, http.MethodPost, "/login", "", `{"username":"`+name+`","password":"supersecret"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("login %s: %d", name, w.Code)
		}
		var logged struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &logged); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return logged.Token
	}

	alice := register("dralice")
	bob := register("drbob")

	w := do(t, app, http.MethodPost, "/patients", alice,
		`{"first_name":"Ana","last_name":"Lima","date_of_birth":"1990-04-12"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create patient: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		PatientID uint `json:"patient_id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	// Bob sees an empty list and cannot touch Alice's patient.
	w = do(t, app, http.MethodGet, "/patients", bob, "")
	var items []map[string]any
	json.Unmarshal(w.Body.Bytes(), &items)
	if len(items) != 0 {
		t.Fatalf("expected bob to see 0 patients got %d", len(items))
	}

	id := created.PatientID
	w = do(t, app, http.MethodGet, "/patients/"+itoa(id), bob, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
	w = do(t, app, http.MethodDelete, "/patients/"+itoa(id), bob, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
	w = do(t, app, http.MethodGet, "/analyses/"+itoa(id), bob, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}

	// Alice still can.
	w = do(t, app, http.MethodGet, "/patients/"+itoa(id), alice, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlainUserCannotManagePatients(t *testing.T) {
	app := setupApp(t)

	w := do(t, app, http.MethodPost, "/register", "",
		`{"username":"justme","email":"me@test.local","password":"supersecret"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	w = do(t, app, http.MethodPost, "/login", "", `{"username":"justme","password":"supersecret"}`)
	var logged struct {
		Token string `json:"token"`
	}
	json.Unmarshal(w.Body.Bytes(), &logged)

	w = do(t, app, http.MethodPost, "/patients", logged.Token,
		`{"first_name":"Ana","last_name":"Lima","date_of_birth":"1990-04-12"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d: %s", w.Code, w.Body.String())
	}
	w = do(t, app, http.MethodGet, "/patients", logged.Token, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", w.Code)
	}
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
