package analysis

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/labelscan/labelscan/internal/application"
	domain "github.com/labelscan/labelscan/internal/domain/analysis"
)

// MaxHistoryLimit bounds every history read.
const MaxHistoryLimit = 50

const defaultHistoryLimit = 20

// Service implements the analysis use-cases. The pipeline is composed of
// independent stages: validate input, call the model with retry, validate the
// response shape, persist, write through to the local cache. Stages never
// reach into each other, so the model provider, retry policy and stores can
// each be swapped in isolation.
//
// Safe for concurrent use; each request is an independent insert with no
// ordering dependency beyond created_at at read time.
type Service struct {
	Repo     domain.Repository
	Analyzer domain.Analyzer
	Cache    domain.Cache        // optional; nil disables the local history
	Archive  domain.ArtifactStore // optional; nil disables payload archiving
	Clock    application.Clock

	// Retry policy for the upstream model call.
	MaxAttempts int           // total attempts, default 3
	Backoff     time.Duration // base backoff, doubled per retry, default 1s

	// FallbackEnabled routes connectivity-class failures to the offline
	// heuristic instead of surfacing them.
	FallbackEnabled bool
}

// Analyze runs the full pipeline for one owner-submitted ingredient text.
//
// Connectivity-class exhaustion is the only failure that degrades to the
// heuristic result; validation, auth, timeout and malformed-response errors
// surface to the caller untouched. Fail closed: nothing is persisted unless
// the response passed shape validation.
func (s *Service) Analyze(ctx context.Context, owner, rawText string) (*domain.Analysis, error) {
	text, err := domain.ValidateInput(rawText)
	if err != nil {
		return nil, err
	}

	payload, err := s.callWithRetry(ctx, text)
	if err != nil {
		if s.FallbackEnabled && connectivityClass(err) {
			return s.fallback(owner, text), nil
		}
		return nil, err
	}

	result, err := domain.ParseResult(payload)
	if err != nil {
		return nil, err
	}

	a := s.newRecord(owner, text, result, domain.SourceModel)
	if err := s.Repo.Save(ctx, a); err != nil {
		return nil, err
	}

	// Primary store is the source of truth; the local cache and the raw
	// payload archive are advisory and must not fail the request.
	s.cachePut(a)
	s.archive(ctx, a, payload)

	return a, nil
}

// callWithRetry performs up to MaxAttempts model calls, backing off
// exponentially between attempts. Only transient errors are retried.
func (s *Service) callWithRetry(ctx context.Context, text string) (string, error) {
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := s.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		payload, err := s.Analyzer.Analyze(ctx, text)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		if !transient(err) {
			return "", err
		}
		log.Printf("model attempt %d/%d failed: %v", i+1, attempts, err)
	}
	return "", lastErr
}

func transient(err error) bool {
	return errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrQuotaExceeded)
}

func connectivityClass(err error) bool {
	return transient(err)
}

// fallback produces the offline heuristic record and parks it in the local
// cache. It never touches the primary store: degraded results are not
// authoritative.
func (s *Service) fallback(owner, text string) *domain.Analysis {
	a := s.newRecord(owner, text, domain.Fallback(text), domain.SourceFallback)
	s.cachePut(a)
	return a
}

func (s *Service) newRecord(owner, text string, r *domain.Result, src domain.Source) *domain.Analysis {
	return &domain.Analysis{
		ID:          domain.AnalysisID(uuid.New().String()),
		OwnerID:     owner,
		InputText:   text,
		Judgment:    r.Judgment,
		KeyFactors:  r.KeyFactors,
		Tradeoffs:   r.Tradeoffs,
		Uncertainty: r.Uncertainty,
		Confidence:  r.Confidence,
		Source:      src,
		CreatedAt:   s.Clock.Now(),
	}
}

func (s *Service) cachePut(a *domain.Analysis) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Put(a); err != nil {
		log.Printf("local history write dropped: %v", err)
	}
}

func (s *Service) archive(ctx context.Context, a *domain.Analysis, payload string) {
	if s.Archive == nil {
		return
	}
	key := a.OwnerID + "/" + string(a.ID) + ".json"
	if _, err := s.Archive.Archive(ctx, key, []byte(payload)); err != nil {
		log.Printf("payload archive failed for %s: %v", a.ID, err)
	}
}

// History returns the owner's most recent records, newest first, bounded at 50.
func (s *Service) History(ctx context.Context, owner string, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.Repo.Latest(ctx, owner, limit)
}

// HistoryPage returns one page of the owner's records, newest first.
func (s *Service) HistoryPage(ctx context.Context, owner string, page, pageSize int) ([]*domain.Analysis, error) {
	if pageSize > MaxHistoryLimit {
		pageSize = MaxHistoryLimit
	}
	return s.Repo.Paginate(ctx, owner, page, pageSize)
}

// Get fetches one record by id, owner-scoped.
func (s *Service) Get(ctx context.Context, owner string, id domain.AnalysisID) (*domain.Analysis, error) {
	return s.Repo.Get(ctx, owner, id)
}

// Delete removes one record, owner-scoped, with no recovery.
func (s *Service) Delete(ctx context.Context, owner string, id domain.AnalysisID) error {
	return s.Repo.Delete(ctx, owner, id)
}

// DeleteAll removes every record belonging to the owner.
func (s *Service) DeleteAll(ctx context.Context, owner string) (int64, error) {
	return s.Repo.DeleteAll(ctx, owner)
}

// Offline lists the device-local fallback history. Read failures degrade to
// an empty list.
func (s *Service) Offline(limit int) []*domain.Analysis {
	if s.Cache == nil {
		return nil
	}
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	list, err := s.Cache.Recent(limit)
	if err != nil {
		log.Printf("local history read failed: %v", err)
		return nil
	}
	return list
}
