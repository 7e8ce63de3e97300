package analysis

import "context"

// Repository port for the primary owner-scoped store. Every method carries
// the owner predicate; there is no update path.
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, owner string, id AnalysisID) (*Analysis, error)
	Latest(ctx context.Context, owner string, limit int) ([]*Analysis, error)
	Paginate(ctx context.Context, owner string, page, pageSize int) ([]*Analysis, error)
	Delete(ctx context.Context, owner string, id AnalysisID) error
	DeleteAll(ctx context.Context, owner string) (int64, error)
}

// Analyzer port: exactly one outbound model call per invocation, no retries.
// Returns the raw model payload; callers validate it before trusting it.
type Analyzer interface {
	Analyze(ctx context.Context, inputText string) (string, error)
}

// Cache port for the device-local fallback history. Not owner-isolated.
type Cache interface {
	Put(a *Analysis) error
	Recent(limit int) ([]*Analysis, error)
}

// ArtifactStore archives raw model payloads for audit.
type ArtifactStore interface {
	Archive(ctx context.Context, key string, payload []byte) (string, error)
}
