package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/cbc-history-etl/internal/domain"
	"github.com/couchcryptid/cbc-history-etl/internal/extract"
	"github.com/couchcryptid/cbc-history-etl/internal/observability"
	"github.com/couchcryptid/cbc-history-etl/internal/source"
	"github.com/couchcryptid/cbc-history-etl/internal/store"
)

// ErrStore marks failures persisting a report, as opposed to problems with
// the export itself.
var ErrStore = errors.New("report store")

// ExportTransformer implements Transformer: it decodes an uploaded export,
// extracts its tables and wraps the result in a report. Geocoding and the
// report store are optional.
type ExportTransformer struct {
	extractor *extract.Extractor
	geocoder  domain.Geocoder
	store     store.Store
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewTransformer creates an ExportTransformer. Pass a nil geocoder or a nil
// store to disable that stage.
func NewTransformer(extractor *extract.Extractor, geocoder domain.Geocoder, st store.Store, metrics *observability.Metrics, logger *slog.Logger) *ExportTransformer {
	if extractor == nil {
		extractor = extract.New(extract.Options{})
	}
	return &ExportTransformer{
		extractor: extractor,
		geocoder:  geocoder,
		store:     st,
		metrics:   metrics,
		logger:    logger,
	}
}

func (t *ExportTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	report, err := t.Process(ctx, raw.Filename(), raw.Value)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return domain.SerializeReport(report)
}

// Process runs one export through the engine and returns its report. Size
// limit failures are returned unchanged so callers can show them verbatim.
func (t *ExportTransformer) Process(ctx context.Context, filename string, data []byte) (domain.Report, error) {
	if err := t.extractor.CheckSize(len(data)); err != nil {
		t.metrics.SizeLimitRejections.Inc()
		return domain.Report{}, err
	}

	text, format, err := source.Load(filename, data, t.extractor.Options().MaxRows)
	if err != nil {
		if extract.IsSizeLimit(err) {
			t.metrics.SizeLimitRejections.Inc()
		}
		return domain.Report{}, fmt.Errorf("load %q: %w", filename, err)
	}

	start := time.Now()
	result, stats, err := t.extractor.ExtractDecoded(text)
	t.metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if extract.IsSizeLimit(err) {
			t.metrics.SizeLimitRejections.Inc()
		}
		return domain.Report{}, err
	}

	t.metrics.RowsLexed.Observe(float64(stats.Rows))
	for name, n := range stats.Sections {
		t.metrics.SectionsFound.WithLabelValues(name).Add(float64(n))
	}

	report := domain.NewReport(data, filename, string(format), result)
	report = domain.EnrichWithGeocoding(ctx, report, t.geocoder, t.logger)

	t.logger.Info("export extracted",
		"export_id", report.ID,
		"filename", filename,
		"format", format,
		"rows", stats.Rows,
		"species", len(result.SpeciesTable),
		"years", len(result.Years),
	)

	if t.store != nil {
		if err := t.store.Put(ctx, report); err != nil {
			t.metrics.StoreWrites.WithLabelValues("error").Inc()
			return domain.Report{}, fmt.Errorf("%w: put %s: %w", ErrStore, report.ID, err)
		}
		t.metrics.StoreWrites.WithLabelValues("success").Inc()
	}
	return report, nil
}
