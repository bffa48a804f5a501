package httpserver

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appanalysis "github.com/aulianza/mindsignal/internal/application/analysis"
	apptriage "github.com/aulianza/mindsignal/internal/application/triage"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
	"github.com/aulianza/mindsignal/internal/domain/inference"
	domtriage "github.com/aulianza/mindsignal/internal/domain/triage"
	"github.com/aulianza/mindsignal/internal/domain/viewer"
	"github.com/aulianza/mindsignal/internal/middleware"
)

type Router struct {
	analysisSvc *appanalysis.Service
	triageSvc   *apptriage.Service
	validate    *validator.Validate
	log         *zap.Logger
}

func NewRouter(analysisSvc *appanalysis.Service, triageSvc *apptriage.Service, log *zap.Logger) http.Handler {
	r := &Router{
		analysisSvc: analysisSvc,
		triageSvc:   triageSvc,
		validate:    validator.New(),
		log:         log,
	}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireTenantMatch(func(req *http.Request) string {
			return chi.URLParam(req, "tenant")
		}))
		rt.Post("/checkins/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/results/latest", r.wrap(r.handleResultsLatest))
		rt.Get("/triage", r.wrap(r.handleTriageList))
		rt.Post("/triage/{id}/status", r.wrap(r.handleTriageStatus))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequestError marks caller mistakes that are not domain sentinels.
type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br *badRequestError
			var ve validator.ValidationErrors
			switch {
			case errors.Is(err, domain.ErrInputInvalid), errors.As(err, &br), errors.As(err, &ve):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, viewer.ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, inference.ErrQuotaExceeded):
				http.Error(w, "inference quota exceeded", http.StatusTooManyRequests)
			case errors.Is(err, domain.ErrAllAnalyzersFailed):
				http.Error(w, "all modality analyzers failed", http.StatusBadGateway)
			case errors.Is(err, domain.ErrEscalationFailed):
				// The caller must see that a High/Critical case did not
				// reach the triage queue.
				http.Error(w, err.Error(), http.StatusInternalServerError)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func (r *Router) viewerFor(req *http.Request) (viewer.Context, error) {
	vc, ok := middleware.GetViewerFromContext(req.Context())
	if !ok {
		return viewer.Context{}, viewer.ErrForbidden
	}
	return vc, nil
}

// POST /v1/{tenant}/checkins/analyze
// Body: subject_id plus any subset of text / voice_clip / facial_image /
// narrative / drawing (binary fields base64). At least one modality must be
// present; the analysis runs synchronously so the caller leaves with either
// a complete result or an explicit stage error.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return badRequest("%v", err)
	}
	vc, err := r.viewerFor(req)
	if err != nil {
		return err
	}

	var body struct {
		SubjectID            string  `json:"subject_id" validate:"omitempty,max=64"`
		Text                 string  `json:"text"`
		VoiceClip            string  `json:"voice_clip"`
		VoiceDurationSeconds float64 `json:"voice_duration_seconds" validate:"omitempty,gt=0"`
		FacialImage          string  `json:"facial_image"`
		Narrative            string  `json:"narrative"`
		Drawing              string  `json:"drawing"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if err := r.validate.Struct(&body); err != nil {
		return err
	}

	// Students and peers always analyze themselves; staff may name a subject.
	subject := vc.SubjectID
	if body.SubjectID != "" && vc.CanViewTriage() {
		subject = body.SubjectID
	}
	if err := middleware.ValidateSubjectID(subject); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateTextInput(body.Text); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateTextInput(body.Narrative); err != nil {
		return badRequest("%v", err)
	}

	areq := &domain.AnalysisRequest{
		SubjectID:   subject,
		TenantID:    tenant,
		SubmittedAt: time.Now(),
		Text:        middleware.SanitizeString(body.Text),
		Narrative:   middleware.SanitizeString(body.Narrative),
	}

	if body.VoiceClip != "" {
		data, err := base64.StdEncoding.DecodeString(body.VoiceClip)
		if err != nil {
			return badRequest("voice_clip is not valid base64")
		}
		if err := middleware.ValidateMediaSize("voice_clip", len(data), middleware.MaxVoiceBytes); err != nil {
			return badRequest("%v", err)
		}
		if body.VoiceDurationSeconds <= 0 {
			return badRequest("voice_duration_seconds is required with voice_clip")
		}
		if body.VoiceDurationSeconds > middleware.MaxVoiceSecs {
			return badRequest("voice_duration_seconds exceeds %d second limit", middleware.MaxVoiceSecs)
		}
		areq.Voice = &domain.VoiceClip{
			Data:     data,
			Duration: time.Duration(body.VoiceDurationSeconds * float64(time.Second)),
		}
	}
	if body.FacialImage != "" {
		data, err := base64.StdEncoding.DecodeString(body.FacialImage)
		if err != nil {
			return badRequest("facial_image is not valid base64")
		}
		if err := middleware.ValidateMediaSize("facial_image", len(data), middleware.MaxImageBytes); err != nil {
			return badRequest("%v", err)
		}
		areq.FacialImage = data
	}
	if body.Drawing != "" {
		data, err := base64.StdEncoding.DecodeString(body.Drawing)
		if err != nil {
			return badRequest("drawing is not valid base64")
		}
		if err := middleware.ValidateMediaSize("drawing", len(data), middleware.MaxImageBytes); err != nil {
			return badRequest("%v", err)
		}
		areq.Drawing = data
	}

	res, err := r.analysisSvc.Analyze(req.Context(), areq)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}

	middleware.IncrementAnalyses()
	failed := 0
	for _, o := range res.Outcomes {
		if !o.OK {
			failed++
		}
	}
	middleware.IncrementAnalyzerFailures(failed)
	if res.Escalated {
		middleware.IncrementEscalations()
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(res)
}

// GET /v1/{tenant}/results/latest?limit=20
// History reads cover every subject in the tenant, so they carry the same
// gate as the triage queue.
func (r *Router) handleResultsLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	vc, err := r.viewerFor(req)
	if err != nil {
		return err
	}
	if !vc.CanViewTriage() {
		return viewer.ErrForbidden
	}

	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.analysisSvc.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/triage?limit=50
func (r *Router) handleTriageList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	vc, err := r.viewerFor(req)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.triageSvc.Queue(req.Context(), vc, tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// POST /v1/{tenant}/triage/{id}/status
// Body: {"status": "acknowledged" | "resolved"}
func (r *Router) handleTriageStatus(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateEntryID(id); err != nil {
		return badRequest("%v", err)
	}
	vc, err := r.viewerFor(req)
	if err != nil {
		return err
	}

	var body struct {
		Status string `json:"status" validate:"required,oneof=acknowledged resolved"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	if err := r.validate.Struct(&body); err != nil {
		return err
	}

	if err := r.triageSvc.UpdateStatus(req.Context(), vc, tenant, domtriage.EntryID(id), domtriage.Status(body.Status)); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"status": body.Status,
	})
}
