package cache

import (
	"context"
	"time"
)

// ReportCache holds serialized report payloads keyed by report name and
// parameters. Reports are read-heavy and tolerant of short staleness, so a
// small TTL keeps dashboards cheap without changing what they show.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return nil
}
