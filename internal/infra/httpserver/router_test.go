package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aulianza/mindsignal/internal/application"
	appanalysis "github.com/aulianza/mindsignal/internal/application/analysis"
	apptriage "github.com/aulianza/mindsignal/internal/application/triage"
	"github.com/aulianza/mindsignal/internal/config"
	domain "github.com/aulianza/mindsignal/internal/domain/analysis"
	domtriage "github.com/aulianza/mindsignal/internal/domain/triage"
	"github.com/aulianza/mindsignal/internal/domain/viewer"
	"github.com/aulianza/mindsignal/internal/middleware"
)

type stubAnalyzer struct {
	modality domain.Modality
	finding  domain.ModalityFinding
}

func (s *stubAnalyzer) Modality() domain.Modality { return s.modality }
func (s *stubAnalyzer) Analyze(context.Context, *domain.AnalysisRequest) (domain.ModalityFinding, error) {
	return s.finding, nil
}

type memResults struct {
	mu    sync.Mutex
	saved []*domain.AnalysisResult
}

func (m *memResults) Save(_ context.Context, r *domain.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, r)
	return nil
}

func (m *memResults) Latest(_ context.Context, tenant string, limit int) ([]*domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AnalysisResult
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].TenantID == tenant {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

type memTriage struct {
	mu      sync.Mutex
	entries map[domtriage.EntryID]*domtriage.Entry
}

func newMemTriage() *memTriage {
	return &memTriage{entries: make(map[domtriage.EntryID]*domtriage.Entry)}
}

func (m *memTriage) Save(_ context.Context, e *domtriage.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.entries[e.ID] = &cp
	return nil
}

func (m *memTriage) Get(_ context.Context, tenant string, id domtriage.EntryID) (*domtriage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.TenantID != tenant {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *memTriage) FindActiveBySubject(_ context.Context, tenant, subject string) (*domtriage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.TenantID == tenant && e.SubjectID == subject && e.Status.Active() {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memTriage) ListActive(_ context.Context, tenant string, limit int) ([]*domtriage.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domtriage.Entry
	for _, e := range m.entries {
		if e.TenantID == tenant && e.Status.Active() {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier > out[j].Tier
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTriage) UpdateStatus(_ context.Context, tenant string, id domtriage.EntryID, status domtriage.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.TenantID != tenant {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

func newTestRouter(finding domain.ModalityFinding, triageRepo domtriage.Repository, results *memResults) http.Handler {
	p := config.DefaultPolicy()
	triageSvc := &apptriage.Service{Repo: triageRepo, Clock: application.SystemClock{}, Log: zap.NewNop()}
	analysisSvc := &appanalysis.Service{
		Analyzers: map[domain.Modality]domain.Analyzer{
			domain.ModalityText: &stubAnalyzer{modality: domain.ModalityText, finding: finding},
		},
		Fuser:       appanalysis.NewFuser(p),
		Classifier:  appanalysis.NewClassifier(p),
		Recommender: appanalysis.NewRecommender(config.DefaultCatalog()),
		Escalator:   triageSvc,
		Results:     results,
		Clock:       application.SystemClock{},
		Policy:      p,
		Log:         zap.NewNop(),
	}
	return NewRouter(analysisSvc, triageSvc, zap.NewNop())
}

func doJSON(t *testing.T, h http.Handler, method, path string, vc *viewer.Context, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if vc != nil {
		req = req.WithContext(middleware.WithViewer(req.Context(), *vc))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var (
	studentVC = viewer.Context{Role: viewer.RoleStudent, SubjectID: "s-1", TenantID: "sekolah-1"}
	staffVC   = viewer.Context{Role: viewer.RoleProfessional, TenantID: "sekolah-1"}
)

func TestAnalyzeEndpoint(t *testing.T) {
	h := newTestRouter(domain.ModalityFinding{
		Modality: domain.ModalityText, Valence: 0.2, Arousal: 0.3, Confidence: 0.9,
	}, newMemTriage(), &memResults{})

	rec := doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"text": "hari ini biasa saja",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "low", res.TierLabel)
	assert.Equal(t, "s-1", res.SubjectID)
	assert.False(t, res.Escalated)
}

func TestAnalyzeStudentCannotNameAnotherSubject(t *testing.T) {
	results := &memResults{}
	h := newTestRouter(domain.ModalityFinding{
		Modality: domain.ModalityText, Valence: 0.0, Arousal: 0.2, Confidence: 0.9,
	}, newMemTriage(), results)

	rec := doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"subject_id": "s-other",
		"text":       "halo",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "s-1", res.SubjectID, "students always analyze themselves")
}

func TestAnalyzeBadInput(t *testing.T) {
	h := newTestRouter(domain.ModalityFinding{Modality: domain.ModalityText}, newMemTriage(), &memResults{})

	// No modality at all.
	rec := doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Broken base64 payload.
	rec = doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"drawing": "not base64!!!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Voice clip without its duration.
	rec = doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"voice_clip": "b3B1cw==",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Voice clip over the duration cap.
	rec = doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"voice_clip":             "b3B1cw==",
		"voice_duration_seconds": middleware.MaxVoiceSecs + 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No resolved viewer.
	rec = doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", nil, map[string]any{"text": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAnalyzeEscalatesIntoQueue(t *testing.T) {
	triageRepo := newMemTriage()
	h := newTestRouter(domain.ModalityFinding{
		Modality: domain.ModalityText, Valence: -0.9, Arousal: 0.9,
		Tags: []string{"self-harm"}, Confidence: 0.95,
	}, triageRepo, &memResults{})

	rec := doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"text": "aku tidak sanggup lagi",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "critical", res.TierLabel)
	assert.True(t, res.Escalated)
	assert.NotEmpty(t, res.TriageEntryID)

	// Staff sees the entry; the student does not.
	rec = doJSON(t, h, http.MethodGet, "/v1/sekolah-1/triage", &staffVC, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []*domtriage.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, domtriage.EntryID(res.TriageEntryID), queue[0].ID)

	rec = doJSON(t, h, http.MethodGet, "/v1/sekolah-1/triage", &studentVC, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCrossTenantDenied(t *testing.T) {
	h := newTestRouter(domain.ModalityFinding{Modality: domain.ModalityText}, newMemTriage(), &memResults{})

	// staffVC carries tenant sekolah-1; every sekolah-2 route must 403
	// before any handler runs.
	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodPost, "/v1/sekolah-2/checkins/analyze", map[string]any{"subject_id": "s-1", "text": "halo"}},
		{http.MethodGet, "/v1/sekolah-2/results/latest?subject_id=s-1", nil},
		{http.MethodGet, "/v1/sekolah-2/triage", nil},
		{http.MethodPost, "/v1/sekolah-2/triage/a1b2c3d4-e5f6-a1b2-c3d4-e5f6a1b2c3d4-triage/status", map[string]any{"status": "resolved"}},
	} {
		rec := doJSON(t, h, tc.method, tc.path, &staffVC, tc.body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}

	rec := doJSON(t, h, http.MethodGet, "/v1/sekolah-2/triage", &studentVC, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestResultsLatestGated(t *testing.T) {
	h := newTestRouter(domain.ModalityFinding{Modality: domain.ModalityText}, newMemTriage(), &memResults{})

	rec := doJSON(t, h, http.MethodGet, "/v1/sekolah-1/results/latest", &studentVC, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/sekolah-1/results/latest", &staffVC, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriageStatusEndpoint(t *testing.T) {
	triageRepo := newMemTriage()
	h := newTestRouter(domain.ModalityFinding{
		Modality: domain.ModalityText, Valence: -0.9, Arousal: 0.9, Confidence: 0.95,
	}, triageRepo, &memResults{})

	rec := doJSON(t, h, http.MethodPost, "/v1/sekolah-1/checkins/analyze", &studentVC, map[string]any{
		"text": "berat sekali minggu ini",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var res domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.TriageEntryID)

	path := "/v1/sekolah-1/triage/" + res.TriageEntryID + "/status"

	rec = doJSON(t, h, http.MethodPost, path, &staffVC, map[string]any{"status": "open"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reopening is rejected")

	rec = doJSON(t, h, http.MethodPost, path, &studentVC, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, h, http.MethodPost, path, &staffVC, map[string]any{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := triageRepo.Get(context.Background(), "sekolah-1", domtriage.EntryID(res.TriageEntryID))
	require.NoError(t, err)
	assert.Equal(t, domtriage.StatusResolved, got.Status)

	rec = doJSON(t, h, http.MethodPost, "/v1/sekolah-1/triage/a1b2c3d4-e5f6-a1b2-c3d4-e5f6a1b2c3d4-triage/status",
		&staffVC, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
