package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/labelscan/labelscan/internal/domain/analysis"
)

const modelPayload = `{
	"judgment": "A moderately processed drink.",
	"key_factors": [
		{"factor": "Added sugar", "explanation": "Second ingredient."},
		{"factor": "Preservative", "explanation": "Sodium benzoate present."}
	],
	"tradeoffs": "Trades a minimal-ingredient profile for taste and shelf life.",
	"uncertainty": "Quantities unknown.",
	"confidence": "medium"
}`

const validInput = "Water, Sugar, Natural Flavors, Citric Acid"

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// spyAnalyzer returns queued responses in order and counts invocations.
type spyAnalyzer struct {
	mu        sync.Mutex
	responses []func() (string, error)
	calls     int
}

func (s *spyAnalyzer) Analyze(ctx context.Context, inputText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.responses) == 0 {
		return "", domain.ErrUnavailable
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next()
}

func (s *spyAnalyzer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func succeed(payload string) func() (string, error) {
	return func() (string, error) { return payload, nil }
}

func fail(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

type memRepo struct {
	mu      sync.Mutex
	records []*domain.Analysis
}

func (r *memRepo) Save(ctx context.Context, a *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.records = append(r.records, &cp)
	return nil
}

func (r *memRepo) Get(ctx context.Context, owner string, id domain.AnalysisID) (*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.records {
		if a.OwnerID == owner && a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) Latest(ctx context.Context, owner string, limit int) ([]*domain.Analysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Analysis
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if r.records[i].OwnerID == owner {
			cp := *r.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) Paginate(ctx context.Context, owner string, page, pageSize int) ([]*domain.Analysis, error) {
	return r.Latest(ctx, owner, pageSize)
}

func (r *memRepo) Delete(ctx context.Context, owner string, id domain.AnalysisID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.records {
		if a.OwnerID == owner && a.ID == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memRepo) DeleteAll(ctx context.Context, owner string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.Analysis
	var n int64
	for _, a := range r.records {
		if a.OwnerID == owner {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.records = kept
	return n, nil
}

func (r *memRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memCache struct {
	mu      sync.Mutex
	entries []*domain.Analysis
	err     error
}

func (c *memCache) Put(a *domain.Analysis) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	cp := *a
	c.entries = append(c.entries, &cp)
	return nil
}

func (c *memCache) Recent(limit int) ([]*domain.Analysis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var out []*domain.Analysis
	for i := len(c.entries) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *c.entries[i]
		out = append(out, &cp)
	}
	return out, nil
}

func newService(analyzer *spyAnalyzer, repo *memRepo, cache *memCache) *Service {
	return &Service{
		Repo:            repo,
		Analyzer:        analyzer,
		Cache:           cache,
		Clock:           fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		MaxAttempts:     3,
		Backoff:         time.Millisecond,
		FallbackEnabled: true,
	}
}

func TestAnalyze_Success(t *testing.T) {
	analyzer := &spyAnalyzer{responses: []func() (string, error){succeed(modelPayload)}}
	repo := &memRepo{}
	cache := &memCache{}
	svc := newService(analyzer, repo, cache)

	a, err := svc.Analyze(context.Background(), "user-1", validInput)
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "user-1", a.OwnerID)
	assert.Equal(t, validInput, a.InputText)
	assert.Equal(t, domain.SourceModel, a.Source)
	assert.Equal(t, domain.ConfidenceMedium, a.Confidence)
	assert.Len(t, a.KeyFactors, 2)
	assert.Equal(t, 1, analyzer.Calls())

	// Persisted to the primary store and written through to the cache.
	stored, err := repo.Get(context.Background(), "user-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.KeyFactors, stored.KeyFactors)

	cached, err := cache.Recent(10)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, a.ID, cached[0].ID)
}

func TestAnalyze_InvalidInput_NoModelCall(t *testing.T) {
	analyzer := &spyAnalyzer{}
	svc := newService(analyzer, &memRepo{}, &memCache{})

	_, err := svc.Analyze(context.Background(), "user-1", "short")
	require.Error(t, err)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, analyzer.Calls(), "validation failures must not reach the model")
}

func TestAnalyze_RetriesThenSucceeds(t *testing.T) {
	analyzer := &spyAnalyzer{responses: []func() (string, error){
		fail(domain.ErrUnavailable),
		succeed(modelPayload),
	}}
	repo := &memRepo{}
	svc := newService(analyzer, repo, &memCache{})

	a, err := svc.Analyze(context.Background(), "user-1", validInput)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceModel, a.Source)
	assert.Equal(t, 2, analyzer.Calls())
	assert.Equal(t, 1, repo.Count())
}

func TestAnalyze_ConnectivityFailure_FallsBack(t *testing.T) {
	analyzer := &spyAnalyzer{responses: []func() (string, error){
		fail(domain.ErrUnavailable),
		fail(domain.ErrUnavailable),
		fail(domain.ErrUnavailable),
	}}
	repo := &memRepo{}
	cache := &memCache{}
	svc := newService(analyzer, repo, cache)

	a, err := svc.Analyze(context.Background(), "user-1", validInput)
	require.NoError(t, err, "connectivity failures must degrade, not fail")

	assert.Equal(t, 3, analyzer.Calls(), "all attempts must be exhausted first")
	assert.Equal(t, domain.SourceFallback, a.Source)
	assert.True(t, a.Confidence.Valid())
	assert.NotEmpty(t, a.Judgment)
	assert.NotEmpty(t, a.KeyFactors)
	assert.NotEmpty(t, a.Tradeoffs)
	assert.NotEmpty(t, a.Uncertainty)

	// Degraded results stay out of the primary store but land in the cache.
	assert.Equal(t, 0, repo.Count())
	cached, err := cache.Recent(10)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, domain.SourceFallback, cached[0].Source)
}

func TestAnalyze_FallbackDisabled_SurfacesError(t *testing.T) {
	analyzer := &spyAnalyzer{}
	svc := newService(analyzer, &memRepo{}, &memCache{})
	svc.FallbackEnabled = false

	_, err := svc.Analyze(context.Background(), "user-1", validInput)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, 3, analyzer.Calls())
}

func TestAnalyze_TimeoutIsNotRetriedAndDoesNotFallBack(t *testing.T) {
	analyzer := &spyAnalyzer{responses: []func() (string, error){
		fail(domain.ErrTimeout),
	}}
	repo := &memRepo{}
	cache := &memCache{}
	svc := newService(analyzer, repo, cache)

	_, err := svc.Analyze(context.Background(), "user-1", validInput)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Equal(t, 1, analyzer.Calls(), "timeouts are terminal per attempt")
	assert.Equal(t, 0, repo.Count())
	cached, _ := cache.Recent(10)
	assert.Empty(t, cached)
}

func TestAnalyze_MalformedResponse_NothingPersisted(t *testing.T) {
	missingConfidence := `{
		"judgment": "j",
		"key_factors": [{"factor": "a", "explanation": "b"}],
		"tradeoffs": "t",
		"uncertainty": "u"
	}`
	analyzer := &spyAnalyzer{responses: []func() (string, error){succeed(missingConfidence)}}
	repo := &memRepo{}
	cache := &memCache{}
	svc := newService(analyzer, repo, cache)

	_, err := svc.Analyze(context.Background(), "user-1", validInput)
	assert.ErrorIs(t, err, domain.ErrMalformedResult)
	assert.Equal(t, 0, repo.Count(), "malformed responses must never be persisted")
	cached, _ := cache.Recent(10)
	assert.Empty(t, cached)
}

func TestAnalyze_QuotaErrorsAreRetriedThenDegrade(t *testing.T) {
	analyzer := &spyAnalyzer{responses: []func() (string, error){
		fail(domain.ErrQuotaExceeded),
		fail(domain.ErrQuotaExceeded),
		fail(domain.ErrQuotaExceeded),
	}}
	svc := newService(analyzer, &memRepo{}, &memCache{})

	a, err := svc.Analyze(context.Background(), "user-1", validInput)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, a.Source)
	assert.Equal(t, 3, analyzer.Calls())
}

func TestAnalyze_CacheFailureDoesNotFailRequest(t *testing.T) {
	analyzer := &spyAnalyzer{responses: []func() (string, error){succeed(modelPayload)}}
	repo := &memRepo{}
	cache := &memCache{err: errors.New("disk full")}
	svc := newService(analyzer, repo, cache)

	a, err := svc.Analyze(context.Background(), "user-1", validInput)
	require.NoError(t, err, "cache writes are advisory")
	assert.Equal(t, domain.SourceModel, a.Source)
	assert.Equal(t, 1, repo.Count())
}

func TestHistory_ClampsLimit(t *testing.T) {
	repo := &memRepo{}
	svc := newService(&spyAnalyzer{}, repo, &memCache{})
	for i := 0; i < 60; i++ {
		a := &domain.Analysis{
			ID:      domain.AnalysisID(time.Now().Format("150405.000") + string(rune('a'+i%26))),
			OwnerID: "user-1",
		}
		require.NoError(t, repo.Save(context.Background(), a))
	}

	list, err := svc.History(context.Background(), "user-1", 500)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(list), MaxHistoryLimit)
}

func TestOffline_ReadFailureDegradesToEmpty(t *testing.T) {
	svc := newService(&spyAnalyzer{}, &memRepo{}, &memCache{err: errors.New("corrupt file")})
	assert.Empty(t, svc.Offline(10))
}
