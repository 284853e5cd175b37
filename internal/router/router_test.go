package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/memo-edu/memo-api/internal/handler"
	"github.com/memo-edu/memo-api/internal/models"
	"github.com/memo-edu/memo-api/internal/service"
	appErrors "github.com/memo-edu/memo-api/pkg/errors"
)

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*models.JWTClaims, error) {
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newTestEngine(deps map[string]handler.Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	h := Handlers{
		Auth:     handler.NewAuthHandler(nil),
		Academic: handler.NewAcademicHandler(nil),
		Subject:  handler.NewSubjectHandler(nil),
		Content:  handler.NewContentHandler(nil),
		Bookmark: handler.NewBookmarkHandler(nil),
		Progress: handler.NewProgressHandler(nil),
		Planner:  handler.NewPlannerHandler(nil),
		Quiz:     handler.NewQuizHandler(nil),
		Metrics:  handler.NewMetricsHandler(metrics, deps),
	}
	return New(Options{}, h, rejectAll{}, metrics, zap.NewNop())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestEngine(nil)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/planner/subjects"},
		{http.MethodPost, "/api/v1/planner/subjects/batch"},
		{http.MethodPut, "/api/v1/planner/subjects/3"},
		{http.MethodGet, "/api/v1/profile/academic"},
		{http.MethodGet, "/api/v1/bookmarks"},
		{http.MethodPost, "/api/v1/contents/4/bookmark"},
		{http.MethodPost, "/api/v1/contents/4/progress"},
		{http.MethodGet, "/api/v1/progress"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodGet, "/api/v1/quizzes"},
		{http.MethodPost, "/api/v1/quizzes/2/start"},
		{http.MethodPost, "/api/v1/quiz-attempts/9/submit"},
		{http.MethodDelete, "/api/v1/quiz-attempts/9/abandon"},
	}
	for _, route := range routes {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestEngine(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memo_http_requests_total")
}

func TestReadyReportsFailingDependency(t *testing.T) {
	r := newTestEngine(map[string]handler.Pinger{
		"postgres": handler.PingerFunc(func(context.Context) error { return nil }),
		"redis":    handler.PingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"connection refused"`)
	assert.Contains(t, rec.Body.String(), `"postgres":"ok"`)
}
