package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/auth"
	"github.com/diewo77/emotion-tracker/internal/config"
	"github.com/diewo77/emotion-tracker/internal/emotion"
	"github.com/diewo77/emotion-tracker/internal/handlers"
	"github.com/diewo77/emotion-tracker/internal/media"
	"github.com/diewo77/emotion-tracker/internal/models"
	"github.com/diewo77/emotion-tracker/internal/policy"
)

// App is the top-level HTTP handler: routes, auth middleware, recovery.
type App struct {
	mux    *http.ServeMux
	db     *gorm.DB
	issuer *auth.Issuer
}

// New wires the whole API together: token issuer, authorization gate, media
// store, classifier, and all route handlers.
func New(db *gorm.DB, cfg config.Config) (*App, error) {
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	store, err := media.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return nil, err
	}

	// Tokens for deleted accounts stop working immediately, even before
	// expiry.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		db.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&count)
		return count > 0
	})

	g := policy.NewAuthGate(db, 5*time.Minute)

	app := &App{
		mux:    http.NewServeMux(),
		db:     db,
		issuer: issuer,
	}
	app.setupRoutes(
		handlers.NewAuthHandler(db, issuer),
		handlers.NewPatientHandler(db, g),
		handlers.NewAnalysisHandler(db, g, store, emotion.NewStubClassifier()),
	)
	return app, nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := a.issuer.Middleware(withRecover(a.mux))
	handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes(ah *handlers.AuthHandler, ph *handlers.PatientHandler, xh *handlers.AnalysisHandler) {
	// Public routes
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("GET /healthz", a.healthz)
	a.mux.HandleFunc("POST /register", ah.Register)
	a.mux.HandleFunc("POST /login", ah.Login)

	// Account
	a.mux.Handle("GET /profile", a.requireAuth(http.HandlerFunc(ah.Profile)))
	a.mux.Handle("PUT /profile", a.requireAuth(http.HandlerFunc(ah.UpdateProfile)))

	// Patients
	a.mux.Handle("POST /patients", a.requireAuth(http.HandlerFunc(ph.Create)))
	a.mux.Handle("GET /patients", a.requireAuth(http.HandlerFunc(ph.List)))
	a.mux.Handle("GET /patients/{id}", a.requireAuth(http.HandlerFunc(ph.Get)))
	a.mux.Handle("PUT /patients/{id}", a.requireAuth(http.HandlerFunc(ph.Update)))
	a.mux.Handle("DELETE /patients/{id}", a.requireAuth(http.HandlerFunc(ph.Delete)))

	// Analyses
	a.mux.Handle("POST /analyze/{patient_id}", a.requireAuth(http.HandlerFunc(xh.Analyze)))
	a.mux.Handle("GET /analyses/{patient_id}", a.requireAuth(http.HandlerFunc(xh.ListForPatient)))
	a.mux.Handle("GET /analysis/{id}", a.requireAuth(http.HandlerFunc(xh.Get)))
	a.mux.Handle("PUT /analysis/{id}/notes", a.requireAuth(http.HandlerFunc(xh.UpdateNotes)))
}

func (a *App) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// healthz also exercises the database connection.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *App) requireAuth(next http.Handler) http.Handler {
	return auth.RequireAuth(next)
}

// withRecover turns panics into 500s instead of dropped connections.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
