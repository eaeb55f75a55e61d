package apiapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Envologia/unimatch-ethio/internal/domain/enums"
	"github.com/Envologia/unimatch-ethio/internal/domain/model"
	pgrepo "github.com/Envologia/unimatch-ethio/internal/repo/postgres"
	adminauthsvc "github.com/Envologia/unimatch-ethio/internal/services/adminauth"
	confsvc "github.com/Envologia/unimatch-ethio/internal/services/confessions"
	reportsvc "github.com/Envologia/unimatch-ethio/internal/services/reports"
	"github.com/Envologia/unimatch-ethio/internal/transport/http/dto"
)

type confessionStoreStub struct {
	confessions map[int64]model.Confession
}

func (s *confessionStoreStub) Create(_ context.Context, _ pgx.Tx, authorID int64, content string) (model.Confession, error) {
	confession := model.Confession{ID: int64(len(s.confessions) + 1), AuthorID: authorID, Content: content, Status: enums.ConfessionStatusPending}
	s.confessions[confession.ID] = confession
	return confession, nil
}

func (s *confessionStoreStub) GetByID(_ context.Context, confessionID int64) (model.Confession, error) {
	confession, ok := s.confessions[confessionID]
	if !ok {
		return model.Confession{}, pgrepo.ErrConfessionNotFound
	}
	return confession, nil
}

func (s *confessionStoreStub) NextPending(context.Context) (model.Confession, error) {
	for _, confession := range s.confessions {
		if confession.Status == enums.ConfessionStatusPending {
			return confession, nil
		}
	}
	return model.Confession{}, pgrepo.ErrConfessionNotFound
}

func (s *confessionStoreStub) CountPending(context.Context) (int, error) {
	count := 0
	for _, confession := range s.confessions {
		if confession.Status == enums.ConfessionStatusPending {
			count++
		}
	}
	return count, nil
}

func (s *confessionStoreStub) Decide(_ context.Context, confessionID int64, status enums.ConfessionStatus) (model.Confession, bool, error) {
	confession, ok := s.confessions[confessionID]
	if !ok {
		return model.Confession{}, false, pgrepo.ErrConfessionNotFound
	}
	if confession.Status != enums.ConfessionStatusPending {
		return confession, false, nil
	}
	confession.Status = status
	s.confessions[confessionID] = confession
	return confession, true, nil
}

func (s *confessionStoreStub) ListByAuthor(context.Context, int64, int) ([]model.Confession, error) {
	return nil, nil
}

func (s *confessionStoreStub) ListApproved(_ context.Context, limit int) ([]model.Confession, error) {
	var out []model.Confession
	for _, confession := range s.confessions {
		if confession.Status == enums.ConfessionStatusApproved && len(out) < limit {
			out = append(out, confession)
		}
	}
	return out, nil
}

type reportStoreStub struct {
	reports map[int64]model.Report
}

func (s *reportStoreStub) Create(_ context.Context, reporterID, targetID int64, reason string) (model.Report, error) {
	report := model.Report{ID: int64(len(s.reports) + 1), ReporterID: reporterID, TargetID: targetID, Reason: reason, Status: enums.ReportStatusPending}
	s.reports[report.ID] = report
	return report, nil
}

func (s *reportStoreStub) CountAgainst(context.Context, int64) (int, error) {
	return len(s.reports), nil
}

func (s *reportStoreStub) ListByStatus(_ context.Context, status enums.ReportStatus, _ int) ([]model.Report, error) {
	var out []model.Report
	for _, report := range s.reports {
		if report.Status == status {
			out = append(out, report)
		}
	}
	return out, nil
}

func (s *reportStoreStub) UpdateStatus(_ context.Context, reportID int64, status enums.ReportStatus) (model.Report, error) {
	report, ok := s.reports[reportID]
	if !ok {
		return model.Report{}, pgrepo.ErrReportNotFound
	}
	report.Status = status
	s.reports[reportID] = report
	return report, nil
}

type userStoreStub struct{}

func (userStoreStub) GetByID(_ context.Context, userID int64) (model.User, error) {
	return model.User{ID: userID, Visible: true}, nil
}

func (userStoreStub) UpdateFields(_ context.Context, userID int64, _ pgrepo.UserPatch) (model.User, error) {
	return model.User{ID: userID}, nil
}

type blockStoreStub struct{}

func (blockStoreStub) Upsert(context.Context, int64, int64) error { return nil }

func newTestRouter(confessions *confessionStoreStub, reports *reportStoreStub) http.Handler {
	adminAuth := adminauthsvc.NewService(adminauthsvc.Config{
		Username:  "admin",
		Password:  "correct-horse",
		JWTSecret: "test-secret",
		AccessTTL: 15 * time.Minute,
	})
	confessionService := confsvc.NewService(confsvc.Dependencies{Store: confessions}, confsvc.Config{})
	reportService := reportsvc.NewService(reportsvc.Dependencies{
		Store:  reports,
		Users:  userStoreStub{},
		Blocks: blockStoreStub{},
	}, reportsvc.Config{})

	r := chi.NewRouter()
	RegisterRoutes(r, Dependencies{
		AdminAuthService:  adminAuth,
		ConfessionService: confessionService,
		ReportService:     reportService,
		Logger:            zap.NewNop(),
	})
	return r
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()

	body := bytes.NewBufferString(`{"username":"admin","password":"correct-horse"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login status: %d body=%s", rec.Code, rec.Body.String())
	}

	var resp dto.AdminLoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected an access token")
	}
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&confessionStoreStub{confessions: map[int64]model.Confession{}}, &reportStoreStub{reports: map[int64]model.Report{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router := newTestRouter(&confessionStoreStub{confessions: map[int64]model.Confession{}}, &reportStoreStub{reports: map[int64]model.Report{}})

	body := bytes.NewBufferString(`{"username":"admin","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	router := newTestRouter(&confessionStoreStub{confessions: map[int64]model.Confession{}}, &reportStoreStub{reports: map[int64]model.Report{}})

	req := httptest.NewRequest(http.MethodGet, "/admin/confessions/next", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: unexpected status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/confessions/next", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: unexpected status %d", rec.Code)
	}
}

func TestModerationFlow(t *testing.T) {
	confessions := &confessionStoreStub{confessions: map[int64]model.Confession{
		1: {ID: 1, AuthorID: 7, Content: "I nap in the library", Status: enums.ConfessionStatusPending},
	}}
	router := newTestRouter(confessions, &reportStoreStub{reports: map[int64]model.Report{}})
	token := loginToken(t, router)

	req := httptest.NewRequest(http.MethodGet, "/admin/confessions/next", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("next status: %d body=%s", rec.Code, rec.Body.String())
	}

	var queue dto.ConfessionQueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &queue); err != nil {
		t.Fatalf("decode queue response: %v", err)
	}
	if queue.Confession.ID != 1 || queue.Pending != 1 {
		t.Fatalf("unexpected queue payload: %+v", queue)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/confessions/1/approve", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve status: %d body=%s", rec.Code, rec.Body.String())
	}

	var decided dto.ConfessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &decided); err != nil {
		t.Fatalf("decode approve response: %v", err)
	}
	if decided.Status != string(enums.ConfessionStatusApproved) {
		t.Fatalf("unexpected status after approve: %s", decided.Status)
	}

	// Queue is drained now.
	req = httptest.NewRequest(http.MethodGet, "/admin/confessions/next", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("drained queue status: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/confessions/recent", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("recent status: %d body=%s", rec.Code, rec.Body.String())
	}

	var recent dto.ConfessionListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &recent); err != nil {
		t.Fatalf("decode recent response: %v", err)
	}
	if len(recent.Confessions) != 1 || recent.Confessions[0].ID != 1 {
		t.Fatalf("approved confession missing from recent list: %+v", recent)
	}
}

func TestReportResolveFlow(t *testing.T) {
	reports := &reportStoreStub{reports: map[int64]model.Report{
		1: {ID: 1, ReporterID: 5, TargetID: 6, Reason: "spam", Status: enums.ReportStatusPending},
	}}
	router := newTestRouter(&confessionStoreStub{confessions: map[int64]model.Confession{}}, reports)
	token := loginToken(t, router)

	req := httptest.NewRequest(http.MethodGet, "/admin/reports", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status: %d body=%s", rec.Code, rec.Body.String())
	}

	var list dto.ReportListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list.Reports) != 1 || list.Reports[0].ID != 1 {
		t.Fatalf("unexpected report list: %+v", list)
	}

	body := bytes.NewBufferString(`{"status":"resolved"}`)
	req = httptest.NewRequest(http.MethodPost, "/admin/reports/1/resolve", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status: %d body=%s", rec.Code, rec.Body.String())
	}

	body = bytes.NewBufferString(`{"status":"pending"}`)
	req = httptest.NewRequest(http.MethodPost, "/admin/reports/1/resolve", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("resolving to pending must fail: %d", rec.Code)
	}
}
