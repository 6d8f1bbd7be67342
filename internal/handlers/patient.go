package handlers

import (
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/auth"
	"github.com/diewo77/emotion-tracker/gate"
	"github.com/diewo77/emotion-tracker/httpx"
	"github.com/diewo77/emotion-tracker/internal/models"
	"github.com/diewo77/emotion-tracker/internal/policy"
	"github.com/diewo77/emotion-tracker/validation"
)

// PatientHandler serves the per-clinician patient registry. Every access
// decision goes through the gate; no route compares owner ids itself.
type PatientHandler struct {
	DB   *gorm.DB
	Gate *policy.AuthGate
}

func NewPatientHandler(db *gorm.DB, g *policy.AuthGate) *PatientHandler {
	return &PatientHandler{DB: db, Gate: g}
}

func pathID(r *http.Request, name string) (uint, bool) {
	id64, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil || id64 == 0 {
		return 0, false
	}
	return uint(id64), true
}

func patientJSON(p *models.Patient) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"date_of_birth": p.DateOfBirth.Format(validation.DateLayout),
		"gender":        p.Gender,
		"email":         p.Email,
		"phone":         p.Phone,
		"created_at":    p.CreatedAt,
	}
}

type patientInput struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	DateOfBirth string  `json:"date_of_birth"`
	Gender      *string `json:"gender"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
}

// Create handles POST /patients (clinician only).
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.Gate.Authorize(r.Context(), gate.ActionCreate, policy.ResourcePatient, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "clinicians_only", nil)
		return
	}

	var input patientInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	validation.Required("first_name", input.FirstName, v)
	validation.Required("last_name", input.LastName, v)
	validation.Required("date_of_birth", input.DateOfBirth, v)
	var dob time.Time
	if input.DateOfBirth != "" {
		dob = validation.Date("date_of_birth", input.DateOfBirth, v)
	}
	if input.Email != nil {
		validation.Email("email", *input.Email, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	patient := models.Patient{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		DateOfBirth: dob,
		Gender:      input.Gender,
		Email:       input.Email,
		Phone:       input.Phone,
		ClinicianID: uid,
	}
	if err := h.DB.Create(&patient).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"patient_id": patient.ID})
}

// List handles GET /patients, scoped to the caller.
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.Gate.Authorize(r.Context(), gate.ActionList, policy.ResourcePatient, nil); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "clinicians_only", nil)
		return
	}

	uid, _ := auth.UserIDFromContext(r.Context())
	var patients []models.Patient
	if err := h.DB.Where("clinician_id = ?", uid).Order("id").Find(&patients).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	items := make([]map[string]any, 0, len(patients))
	for i := range patients {
		items = append(items, patientJSON(&patients[i]))
	}
	httpx.JSON(w, http.StatusOK, items)
}

// load fetches the patient or writes 404/403 and returns nil.
func (h *PatientHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) *models.Patient {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil
	}
	var patient models.Patient
	if err := h.DB.First(&patient, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "patient_not_found", nil)
		return nil
	}
	if err := h.Gate.Authorize(r.Context(), action, policy.ResourcePatient, &patient); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return nil
	}
	return &patient
}

// Get handles GET /patients/{id}: the record plus analysis summaries.
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	patient := h.load(w, r, gate.ActionView)
	if patient == nil {
		return
	}

	var analyses []models.Analysis
	h.DB.Where("patient_id = ?", patient.ID).Order("analysis_date DESC").Find(&analyses)

	body := patientJSON(patient)
	summaries := make([]map[string]any, 0, len(analyses))
	for _, a := range analyses {
		summaries = append(summaries, map[string]any{
			"id":     a.ID,
			"date":   a.AnalysisDate,
			"type":   a.AnalysisType,
			"status": a.Status,
		})
	}
	body["analyses"] = summaries
	httpx.JSON(w, http.StatusOK, body)
}

// Update handles PUT /patients/{id}. Only supplied fields change.
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	patient := h.load(w, r, gate.ActionUpdate)
	if patient == nil {
		return
	}

	var input struct {
		FirstName   *string `json:"first_name"`
		LastName    *string `json:"last_name"`
		DateOfBirth *string `json:"date_of_birth"`
		Gender      *string `json:"gender"`
		Email       *string `json:"email"`
		Phone       *string `json:"phone"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := validation.Violations{}
	updates := map[string]any{}
	if input.FirstName != nil {
		validation.Required("first_name", *input.FirstName, v)
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		validation.Required("last_name", *input.LastName, v)
		updates["last_name"] = *input.LastName
	}
	if input.DateOfBirth != nil {
		updates["date_of_birth"] = validation.Date("date_of_birth", *input.DateOfBirth, v)
	}
	if input.Gender != nil {
		updates["gender"] = *input.Gender
	}
	if input.Email != nil {
		validation.Email("email", *input.Email, v)
		updates["email"] = *input.Email
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	if len(updates) == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "nothing_to_update", nil)
		return
	}

	if err := h.DB.Model(patient).Updates(updates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "patient updated"})
}

// Delete handles DELETE /patients/{id}. The patient's analyses go with it in
// the same transaction, so sqlite test databases behave like the FK cascade.
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	patient := h.load(w, r, gate.ActionDelete)
	if patient == nil {
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("patient_id = ?", patient.ID).Delete(&models.Analysis{}).Error; err != nil {
			return err
		}
		return tx.Delete(patient).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "patient deleted"})
}
