// Package analyzer requests job analyses from the remote AI service,
// consulting the analysis cache first and falling back to local
// keyword heuristics when the service is unreachable.
package analyzer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/caesium-cloud/jobassist/internal/cache"
	"github.com/caesium-cloud/jobassist/internal/job"
	"github.com/caesium-cloud/jobassist/internal/metrics"
	"github.com/caesium-cloud/jobassist/pkg/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultConcurrency bounds parallel remote analyses in a batch.
const DefaultConcurrency = 4

// Cache is the subset of the analysis cache the service needs.
type Cache interface {
	Get(ctx context.Context, j job.Job) (json.RawMessage, bool)
	Put(ctx context.Context, j job.Job, analysis json.RawMessage)
	PutBatch(ctx context.Context, jobs []job.Job, analyses []json.RawMessage)
}

// Result is the outcome of analyzing one posting.
type Result struct {
	Data     json.RawMessage `json:"data"`
	Cached   bool            `json:"cached"`
	Fallback bool            `json:"fallback"`
}

// Service serves analyses from the cache or the remote backend.
type Service struct {
	remote      Remote
	cache       Cache
	concurrency int

	mu          sync.RWMutex
	profile     Profile
	profilePath string

	// flight collapses concurrent misses for the same fingerprint
	// into one remote request.
	flight singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithProfilePath persists profile updates to a YAML file.
func WithProfilePath(path string) Option {
	return func(s *Service) {
		s.profilePath = path
	}
}

// NewService wires a remote backend to a cache. A concurrency <= 0
// uses DefaultConcurrency.
func NewService(remote Remote, cache Cache, profile Profile, concurrency int, opts ...Option) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	s := &Service{
		remote:      remote,
		cache:       cache,
		profile:     profile,
		concurrency: concurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Profile returns the candidate profile sent with every request.
func (s *Service) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// UpdateProfile replaces the candidate profile used by later requests.
// When a profile path is configured the file is rewritten first and the
// in-memory profile only changes if that succeeds. Cached analyses are
// kept.
func (s *Service) UpdateProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profilePath != "" {
		if err := SaveProfile(s.profilePath, p); err != nil {
			return err
		}
	}

	s.profile = p

	log.Info("updated candidate profile", "name", p.Name, "persisted", s.profilePath != "")

	return nil
}

// Analyze returns the analysis of j. Fresh remote results are cached;
// fallback results are not.
func (s *Service) Analyze(ctx context.Context, j job.Job) Result {
	if data, ok := s.cache.Get(ctx, j); ok {
		log.Debug("using cached analysis", "title", j.Title, "company", j.Company)
		metrics.AnalyzerRequestsTotal.WithLabelValues("cached").Inc()
		return Result{Data: data, Cached: true}
	}

	profile := s.Profile()
	// shared by every caller joining the flight
	flightCtx := context.WithoutCancel(ctx)

	v, err, shared := s.flight.Do(cache.Fingerprint(j), func() (interface{}, error) {
		data, err := s.remote.Analyze(flightCtx, j, profile)
		if err != nil {
			return nil, err
		}
		s.cache.Put(flightCtx, j, data)
		return data, nil
	})
	if err != nil {
		return s.fallback(j, profile, err)
	}

	if shared {
		log.Debug("joined in-flight analysis", "title", j.Title, "company", j.Company)
	}
	metrics.AnalyzerRequestsTotal.WithLabelValues("remote").Inc()

	return Result{Data: v.(json.RawMessage)}
}

// AnalyzeBatch analyzes jobs, serving hits from the cache and
// requesting misses in parallel. Fresh results are cached with one
// batch write. Results are returned in input order.
func (s *Service) AnalyzeBatch(ctx context.Context, jobs []job.Job) []Result {
	profile := s.Profile()
	results := make([]Result, len(jobs))
	fresh := make([]bool, len(jobs))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, j := range jobs {
		if data, ok := s.cache.Get(ctx, j); ok {
			metrics.AnalyzerRequestsTotal.WithLabelValues("cached").Inc()
			results[i] = Result{Data: data, Cached: true}
			continue
		}

		g.Go(func() error {
			data, err := s.remote.Analyze(ctx, j, profile)
			if err != nil {
				results[i] = s.fallback(j, profile, err)
				return nil
			}

			metrics.AnalyzerRequestsTotal.WithLabelValues("remote").Inc()
			results[i] = Result{Data: data}
			fresh[i] = true

			return nil
		})
	}

	// workers record failures as fallbacks and never return errors
	_ = g.Wait()

	var (
		batchJobs []job.Job
		analyses  []json.RawMessage
	)

	for i, ok := range fresh {
		if ok {
			batchJobs = append(batchJobs, jobs[i])
			analyses = append(analyses, results[i].Data)
		}
	}

	if len(batchJobs) > 0 {
		s.cache.PutBatch(ctx, batchJobs, analyses)
	}

	log.Info(
		"analyzed job batch",
		"count", len(jobs),
		"fresh", len(batchJobs),
	)

	return results
}

// PreFilter narrows jobs to those worth a full analysis, using local
// keyword scoring when the backend fails.
func (s *Service) PreFilter(ctx context.Context, jobs []job.Job) PreFilterResult {
	profile := s.Profile()

	res, err := s.remote.PreFilter(ctx, jobs, profile)
	if err != nil {
		log.Warn("pre-filter unavailable, using keyword fallback", "count", len(jobs), "error", err)
		res = PreFilterFallback(jobs, profile)
	}

	log.Info(
		"pre-filtered jobs",
		"original", len(jobs),
		"filtered", res.FilteredCount,
		"fallback", res.Fallback,
	)

	return res
}

func (s *Service) fallback(j job.Job, profile Profile, cause error) Result {
	log.Warn(
		"job analysis unavailable, using keyword fallback",
		"title", j.Title,
		"company", j.Company,
		"error", cause,
	)
	metrics.AnalyzerRequestsTotal.WithLabelValues("fallback").Inc()

	return Result{Data: Fallback(j, profile).JSON(), Fallback: true}
}
