package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
	"github.com/angelmondragon/mesflow-backend/pkg/gcp"
	"github.com/angelmondragon/mesflow-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// Row is one streamed row. BigQuery drops rows whose InsertID it has seen in
// the last minute, which makes retried batches safe.
type Row struct {
	InsertID string
	Value    any
}

// Client streams rows into the tables of one dataset.
type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient connects and fails fast when the dataset or a configured table
// is missing, since streaming inserts would otherwise fail on every run.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := gcp.ProjectID(gcpCfg)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables := configuredTables(cfg)
	if len(tables) == 0 {
		return nil, errTableNameRequired
	}

	conn, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: conn, dataset: conn.Dataset(datasetID), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": tables}), "bigquery client initialized")
	}
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	var tables []string
	if name := strings.TrimSpace(cfg.SuggestedActionsTable); name != "" {
		tables = append(tables, name)
	}
	return tables
}

// Ping checks that the dataset and every configured table are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeMetadataErr("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describeMetadataErr("table", name, err)
		}
	}
	return nil
}

// InsertRows streams rows into table. Per-row rejections are folded into one
// error that reports how many rows failed and the first reason.
func (c *Client) InsertRows(ctx context.Context, table string, rows []Row) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	return summarizeInsertErr(c.dataset.Table(table).Inserter().Put(ctx, savers(rows)), len(rows))
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func savers(rows []Row) []*bigquery.StructSaver {
	out := make([]*bigquery.StructSaver, 0, len(rows))
	for _, row := range rows {
		out = append(out, &bigquery.StructSaver{Struct: row.Value, InsertID: row.InsertID})
	}
	return out
}

func summarizeInsertErr(err error, total int) error {
	if err == nil {
		return nil
	}
	var rowErrs bigquery.PutMultiError
	if errors.As(err, &rowErrs) && len(rowErrs) > 0 {
		first := rowErrs[0]
		return fmt.Errorf("%d of %d rows rejected, row %d: %w", len(rowErrs), total, first.RowIndex, first.Errors)
	}
	return err
}

func describeMetadataErr(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}
