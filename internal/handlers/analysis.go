package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/gate"
	"github.com/diewo77/emotion-tracker/httpx"
	"github.com/diewo77/emotion-tracker/internal/emotion"
	"github.com/diewo77/emotion-tracker/internal/media"
	"github.com/diewo77/emotion-tracker/internal/models"
	"github.com/diewo77/emotion-tracker/internal/policy"
)

// maxUploadBytes caps a single media upload.
const maxUploadBytes = 100 << 20

// AnalysisHandler runs emotion analyses on uploaded media and serves the
// results back. Media is written to disk before the classifier runs; a
// classifier failure still leaves a row behind with status "failed".
type AnalysisHandler struct {
	DB         *gorm.DB
	Gate       *policy.AuthGate
	Store      *media.DiskStore
	Classifier emotion.Classifier
}

func NewAnalysisHandler(db *gorm.DB, g *policy.AuthGate, store *media.DiskStore, cls emotion.Classifier) *AnalysisHandler {
	return &AnalysisHandler{DB: db, Gate: g, Store: store, Classifier: cls}
}

func analysisJSON(a *models.Analysis) map[string]any {
	var scores map[string]float64
	if len(a.Emotions) > 0 {
		_ = json.Unmarshal(a.Emotions, &scores)
	}
	return map[string]any{
		"id":                a.ID,
		"patient_id":        a.PatientID,
		"date":              a.AnalysisDate,
		"type":              a.AnalysisType,
		"dominant_emotion":  a.Dominant,
		"emotions_detected": scores,
		"confidence_score":  a.Confidence,
		"notes":             a.Notes,
		"status":            a.Status,
	}
}

// loadPatient fetches the patient behind /analyze and /analyses routes and
// runs the ownership check against it. The permission resource is the
// analysis ledger, not the patient record itself.
func (h *AnalysisHandler) loadPatient(w http.ResponseWriter, r *http.Request, action gate.Action) *models.Patient {
	id, ok := pathID(r, "patient_id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil
	}
	var patient models.Patient
	if err := h.DB.First(&patient, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "patient_not_found", nil)
		return nil
	}
	if err := h.Gate.Authorize(r.Context(), action, policy.ResourceAnalysis, &patient); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return nil
	}
	return &patient
}

// Analyze handles POST /analyze/{patient_id}: multipart upload, detect the
// media kind, store the file, classify, persist the result.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	patient := h.loadPatient(w, r, gate.ActionCreate)
	if patient == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_multipart", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "no_file", nil)
		return
	}
	defer file.Close()

	mediaType, err := media.Kind(header.Filename)
	if err != nil {
		if errors.Is(err, media.ErrEmptyName) {
			httpx.JSONError(w, http.StatusBadRequest, "no_file", nil)
			return
		}
		httpx.JSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", nil)
		return
	}

	storedPath, err := h.Store.Save(file, header.Filename)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "storage_failed", nil)
		return
	}

	analysis := models.Analysis{
		PatientID:    patient.ID,
		ClinicianID:  patient.ClinicianID,
		AnalysisDate: time.Now().UTC(),
		AnalysisType: mediaType,
		MediaPath:    storedPath,
		Status:       models.StatusPending,
	}

	result, err := h.Classifier.Classify(r.Context(), storedPath, mediaType)
	if err != nil {
		analysis.Status = models.StatusFailed
		h.DB.Create(&analysis)
		httpx.JSONError(w, http.StatusInternalServerError, "inference_failed", nil)
		return
	}

	scores, err := json.Marshal(result.Scores)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	analysis.Emotions = datatypes.JSON(scores)
	analysis.Dominant = result.Dominant
	analysis.Confidence = result.Confidence
	analysis.Status = models.StatusCompleted

	if err := h.DB.Create(&analysis).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"analysis_id": analysis.ID,
		"results": map[string]any{
			"dominant_emotion": result.Dominant,
			"emotions":         result.Scores,
			"confidence":       result.Confidence,
		},
	})
}

// ListForPatient handles GET /analyses/{patient_id}, newest first.
func (h *AnalysisHandler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	patient := h.loadPatient(w, r, gate.ActionList)
	if patient == nil {
		return
	}

	var analyses []models.Analysis
	if err := h.DB.Where("patient_id = ?", patient.ID).Order("analysis_date DESC").Find(&analyses).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	items := make([]map[string]any, 0, len(analyses))
	for i := range analyses {
		items = append(items, analysisJSON(&analyses[i]))
	}
	httpx.JSON(w, http.StatusOK, items)
}

// load fetches a single analysis by id and authorizes the action against it.
func (h *AnalysisHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) *models.Analysis {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil
	}
	var analysis models.Analysis
	if err := h.DB.First(&analysis, id).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "analysis_not_found", nil)
		return nil
	}
	if err := h.Gate.Authorize(r.Context(), action, policy.ResourceAnalysis, &analysis); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return nil
	}
	return &analysis
}

// Get handles GET /analysis/{id}.
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysis := h.load(w, r, gate.ActionView)
	if analysis == nil {
		return
	}
	httpx.JSON(w, http.StatusOK, analysisJSON(analysis))
}

// UpdateNotes handles PUT /analysis/{id}/notes. Notes is the only field a
// clinician can change after an analysis completes.
func (h *AnalysisHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	analysis := h.load(w, r, gate.ActionAnnotate)
	if analysis == nil {
		return
	}

	var input struct {
		Notes *string `json:"notes"`
	}
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if input.Notes == nil {
		httpx.JSONError(w, http.StatusBadRequest, "nothing_to_update", nil)
		return
	}

	if err := h.DB.Model(analysis).Update("notes", *input.Notes).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "notes updated"})
}
