package mrp

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/mesflow-backend/pkg/bigquery"
	"github.com/angelmondragon/mesflow-backend/pkg/db/models"
)

const exportBatchSize = 500

// Exporter receives every persisted plan.
type Exporter interface {
	ExportSuggestions(ctx context.Context, rows []models.SuggestedAction) error
}

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []bigquery.Row) error
}

// SuggestionRow mirrors the suggested_actions BigQuery schema.
type SuggestionRow struct {
	CompanyID         string                  `bigquery:"company_id"`
	ItemID            string                  `bigquery:"item_id"`
	LocationID        string                  `bigquery:"location_id"`
	PeriodStart       cbigquery.NullTimestamp `bigquery:"period_start"`
	GrossDemand       *big.Rat                `bigquery:"gross_demand"`
	ScheduledSupply   *big.Rat                `bigquery:"scheduled_supply"`
	ProjectedOnHand   *big.Rat                `bigquery:"projected_on_hand"`
	SuggestedQuantity *big.Rat                `bigquery:"suggested_quantity"`
	Action            string                  `bigquery:"action"`
	DueDate           cbigquery.NullTimestamp `bigquery:"due_date"`
	CalculatedAt      time.Time               `bigquery:"calculated_at"`
}

// BigQueryExporter streams suggested actions into an append-only table so
// planners can compare runs over time.
type BigQueryExporter struct {
	client tableInserter
	table  string
}

func NewBigQueryExporter(client tableInserter, table string) (*BigQueryExporter, error) {
	if client == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("suggested actions table required")
	}
	return &BigQueryExporter{client: client, table: table}, nil
}

func (e *BigQueryExporter) ExportSuggestions(ctx context.Context, rows []models.SuggestedAction) error {
	for start := 0; start < len(rows); start += exportBatchSize {
		end := min(start+exportBatchSize, len(rows))
		batch := make([]bigquery.Row, 0, end-start)
		for _, row := range rows[start:end] {
			batch = append(batch, bigquery.Row{InsertID: insertID(row), Value: toSuggestionRow(row)})
		}
		if err := e.client.InsertRows(ctx, e.table, batch); err != nil {
			return fmt.Errorf("insert suggested actions %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func toSuggestionRow(row models.SuggestedAction) SuggestionRow {
	out := SuggestionRow{
		CompanyID:         row.CompanyID.String(),
		ItemID:            row.ItemID.String(),
		LocationID:        row.LocationID.String(),
		PeriodStart:       cbigquery.NullTimestamp{Timestamp: row.PeriodStart, Valid: true},
		GrossDemand:       row.GrossDemand.Rat(),
		ScheduledSupply:   row.ScheduledSupply.Rat(),
		ProjectedOnHand:   row.ProjectedOnHand.Rat(),
		SuggestedQuantity: row.SuggestedQuantity.Rat(),
		Action:            string(row.Action),
		CalculatedAt:      row.CalculatedAt,
	}
	if row.DueDate != nil {
		out.DueDate = cbigquery.NullTimestamp{Timestamp: *row.DueDate, Valid: true}
	}
	return out
}

// insertID is stable for one row of one run, so a retried batch is deduplicated
// while a later run of the same plan is still appended.
func insertID(row models.SuggestedAction) string {
	return strings.Join([]string{
		row.CompanyID.String(),
		row.ItemID.String(),
		row.LocationID.String(),
		row.PeriodStart.UTC().Format(time.DateOnly),
		row.CalculatedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
}
