package health

import "context"

// IndexPinger checks vector index availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks a language model or embedding provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
