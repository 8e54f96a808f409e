package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/caesium-cloud/jobassist/internal/store/memory"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

type APITestSuite struct {
	suite.Suite
	backend *httptest.Server
	cache   *cache.Cache
	e       *echo.Echo

	mu          sync.Mutex
	sentProfile analyzer.Profile
}

func (s *APITestSuite) SetupTest() {
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/analyze-job":
			var req struct {
				UserProfile analyzer.Profile `json:"user_profile"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				s.mu.Lock()
				s.sentProfile = req.UserProfile
				s.mu.Unlock()
			}
			_, _ = w.Write([]byte(`{"status":"RELEVANT","reason":"remote"}`))
		default:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}))

	client, err := analyzer.NewClient(s.backend.URL, time.Second)
	s.Require().NoError(err)

	s.cache = cache.New(memory.New(0), cache.Config{})
	svc := analyzer.NewService(client, s.cache, analyzer.DefaultProfile(), 2)
	s.e = New(s.cache, svc)
}

func (s *APITestSuite) TearDownTest() {
	s.backend.Close()
	s.Require().NoError(s.cache.Close())
}

func (s *APITestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *APITestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "")
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get(echo.HeaderXRequestID))

	var resp HealthResponse
	s.decode(rec, &resp)
	s.Equal(Healthy, resp.Status)
}

func (s *APITestSuite) TestMetrics() {
	rec := s.do(http.MethodGet, "/metrics", "")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *APITestSuite) TestAnalyzeCachesResult() {
	body := `{"type":"job_page","title":"Backend  Engineer","company":"Acme","url":"https://example.com/1"}`

	rec := s.do(http.MethodPost, "/v1/analyze", body)
	s.Require().Equal(http.StatusOK, rec.Code)

	var first analyzer.Result
	s.decode(rec, &first)
	s.False(first.Cached)
	s.JSONEq(`{"status":"RELEVANT","reason":"remote"}`, string(first.Data))

	rec = s.do(http.MethodPost, "/v1/analyze", body)
	var second analyzer.Result
	s.decode(rec, &second)
	s.True(second.Cached)

	rec = s.do(http.MethodGet, "/v1/cache/stats", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var stats cache.Stats
	s.decode(rec, &stats)
	s.Equal(1, stats.TotalEntries)
	s.Equal(int64(1), stats.Hits)
	s.Equal(int64(1), stats.Misses)
}

func (s *APITestSuite) TestAnalyzeRejectsThinPosting() {
	rec := s.do(http.MethodPost, "/v1/analyze", `{"type":"feed_post","content":"hiring"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/analyze", `{"title":`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestAnalyzeBatch() {
	rec := s.do(http.MethodPost, "/v1/analyze/batch",
		`{"jobs":[{"title":"A","company":"X"},{"title":"B","company":"Y"}]}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Results []analyzer.Result `json:"results"`
	}
	s.decode(rec, &resp)
	s.Len(resp.Results, 2)
	s.Len(s.cache.Keys(context.Background()), 2)

	rec = s.do(http.MethodPost, "/v1/analyze/batch", `{"jobs":[]}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *APITestSuite) TestPreFilterFallsBack() {
	rec := s.do(http.MethodPost, "/v1/prefilter",
		`{"jobs":[{"title":"Python Developer"},{"title":"Barista"}]}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	var res analyzer.PreFilterResult
	s.decode(rec, &res)
	s.True(res.Fallback)
	s.Equal(2, res.OriginalCount)
	s.Equal(1, res.FilteredCount)
}

func (s *APITestSuite) TestCacheAdministration() {
	for _, title := range []string{"A", "B", "C", "D"} {
		rec := s.do(http.MethodPost, "/v1/analyze", `{"title":"`+title+`","company":"X"}`)
		s.Require().Equal(http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodPost, "/v1/cache/cleanup", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"tier":"aggressive","removed":2}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/cache/cleanup?tier=emergency", "")
	s.JSONEq(`{"tier":"emergency","removed":1}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/v1/cache/cleanup?tier=bogus", "")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/v1/cache/storage", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var storage struct {
		UsedBytes  int64  `json:"usedBytes"`
		QuotaBytes int64  `json:"quotaBytes"`
		Quota      string `json:"quota"`
	}
	s.decode(rec, &storage)
	s.Positive(storage.UsedBytes)
	s.Equal(cache.DefaultQuotaBytes, storage.QuotaBytes)
	s.Equal("10 MB", storage.Quota)

	rec = s.do(http.MethodPost, "/v1/cache/bulk", "")
	s.JSONEq(`{"bulkMode":true,"expiryHours":12}`, rec.Body.String())

	rec = s.do(http.MethodDelete, "/v1/cache", "")
	s.JSONEq(`{"cleared":1}`, rec.Body.String())
	s.Empty(s.cache.Keys(context.Background()))
}

func (s *APITestSuite) TestProfile() {
	rec := s.do(http.MethodGet, "/v1/profile", "")
	s.Require().Equal(http.StatusOK, rec.Code)

	var p analyzer.Profile
	s.decode(rec, &p)
	s.Equal(analyzer.DefaultProfile(), p)

	rec = s.do(http.MethodPut, "/v1/profile", `{"name":"Ada","experience":3,"skills":["Go","Postgres"]}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &p)
	s.Equal("Ada", p.Name)

	rec = s.do(http.MethodGet, "/v1/profile", "")
	var got analyzer.Profile
	s.decode(rec, &got)
	s.Equal(p, got)

	rec = s.do(http.MethodPost, "/v1/analyze", `{"title":"Go Engineer","company":"Acme"}`)
	s.Require().Equal(http.StatusOK, rec.Code)

	s.mu.Lock()
	sent := s.sentProfile
	s.mu.Unlock()
	s.Equal("Ada", sent.Name)
	s.Equal([]string{"Go", "Postgres"}, sent.Skills)
}

func (s *APITestSuite) TestProfileRejectsInvalidUpdate() {
	rec := s.do(http.MethodPut, "/v1/profile", `{"name":"","experience":2}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/v1/profile", `{"name":`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/v1/profile", "")
	var p analyzer.Profile
	s.decode(rec, &p)
	s.Equal(analyzer.DefaultProfile().Name, p.Name)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
