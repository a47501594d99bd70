package engine

import (
	"context"
	"fmt"

	"github.com/angelmondragon/mesflow-backend/internal/mrp"
	"github.com/angelmondragon/mesflow-backend/pkg/bigquery"
	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

// NewExporter connects the BigQuery export when a dataset is configured. The
// returned close func is always safe to call.
func NewExporter(ctx context.Context, cfg *config.Config, logg *logger.Logger) (mrp.Exporter, func() error, error) {
	noop := func() error { return nil }
	if cfg == nil || !cfg.BigQuery.Enabled() {
		return nil, noop, nil
	}
	client, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return nil, noop, fmt.Errorf("bigquery client: %w", err)
	}
	exporter, err := mrp.NewBigQueryExporter(client, cfg.BigQuery.SuggestedActionsTable)
	if err != nil {
		_ = client.Close()
		return nil, noop, err
	}
	return exporter, client.Close, nil
}
