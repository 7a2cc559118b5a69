package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesTotal    = "esmport.files.total"
	metricFileDuration  = "esmport.file.duration.seconds"
	metricChangesTotal  = "esmport.changes.total"
	metricProblemsTotal = "esmport.problems.total"

	attrStatus = "status"
	attrClass  = "class"
	attrKind   = "kind"
)

// durationBucketBoundaries covers 100us to 5s; a single file pass is
// normally well under a millisecond.
var durationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// MigrationMetrics holds the instruments of a migration run. A nil
// *MigrationMetrics records nothing.
type MigrationMetrics struct {
	filesTotal    metric.Int64Counter
	fileDuration  metric.Float64Histogram
	changesTotal  metric.Int64Counter
	problemsTotal metric.Int64Counter
}

// NewMigrationMetrics creates the migration instruments from the given meter.
func NewMigrationMetrics(mt metric.Meter) (*MigrationMetrics, error) {
	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Files processed, by outcome"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	duration, err := mt.Float64Histogram(metricFileDuration,
		metric.WithDescription("Per-file rewrite duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFileDuration, err)
	}

	changes, err := mt.Int64Counter(metricChangesTotal,
		metric.WithDescription("Rewrites applied, by import class"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChangesTotal, err)
	}

	problems, err := mt.Int64Counter(metricProblemsTotal,
		metric.WithDescription("Non-fatal rewrite errors, by kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricProblemsTotal, err)
	}

	return &MigrationMetrics{
		filesTotal:    files,
		fileDuration:  duration,
		changesTotal:  changes,
		problemsTotal: problems,
	}, nil
}

// RecordFile records one processed file with its outcome and duration.
func (mm *MigrationMetrics) RecordFile(ctx context.Context, status string, duration time.Duration) {
	if mm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	mm.filesTotal.Add(ctx, 1, attrs)
	mm.fileDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordChange counts one applied rewrite of the given class.
func (mm *MigrationMetrics) RecordChange(ctx context.Context, class string) {
	if mm == nil {
		return
	}

	mm.changesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrClass, class)))
}

// RecordError counts one non-fatal rewrite error of the given kind.
func (mm *MigrationMetrics) RecordError(ctx context.Context, kind string) {
	if mm == nil {
		return
	}

	mm.problemsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrKind, kind)))
}
