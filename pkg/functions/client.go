package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/angelmondragon/mesflow-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/mesflow-backend/pkg/errors"
)

const (
	defaultTimeout              = 30 * time.Second
	responseBodyReadLimit int64 = 1024

	typeSchedule             = "schedule"
	typePurchaseOrderFromJob = "purchaseOrderFromJob"
)

var errURLRequired = errors.New("function url is required")

// ScheduleRequest asks the scheduler function to plan a job's operations.
type ScheduleRequest struct {
	JobID     uuid.UUID
	CompanyID uuid.UUID
	UserID    uuid.UUID
}

// PurchaseOrdersRequest asks the purchasing function to raise orders for a
// job's Buy materials. PurchaseOrdersBySupplier maps a supplier to an
// existing order to append to.
type PurchaseOrdersRequest struct {
	JobID                    uuid.UUID
	PurchaseOrdersBySupplier map[string]string
	CompanyID                uuid.UUID
	UserID                   uuid.UUID
}

// Scheduler is the external scheduling function.
type Scheduler interface {
	Schedule(ctx context.Context, req ScheduleRequest) error
}

// PurchaseOrderGenerator is the external purchase order generation function.
type PurchaseOrderGenerator interface {
	GeneratePurchaseOrders(ctx context.Context, req PurchaseOrdersRequest) error
}

// Client posts JSON task bodies to the scheduler and purchasing functions.
type Client struct {
	httpClient    *http.Client
	schedulerURL  string
	purchasingURL string
	gcpOpts       []option.ClientOption
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, which disables identity tokens.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithGCPOptions passes credentials to the identity token source.
func WithGCPOptions(opts ...option.ClientOption) Option {
	return func(c *Client) {
		c.gcpOpts = append(c.gcpOpts, opts...)
	}
}

// NewClient builds a client from configuration. With an audience set, calls
// carry a Google-signed identity token for that audience.
func NewClient(ctx context.Context, cfg config.FunctionsConfig, opts ...Option) (*Client, error) {
	schedulerURL := strings.TrimSpace(cfg.SchedulerURL)
	purchasingURL := strings.TrimSpace(cfg.PurchasingURL)
	if schedulerURL == "" || purchasingURL == "" {
		return nil, errURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{schedulerURL: schedulerURL, purchasingURL: purchasingURL}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient != nil {
		return client, nil
	}

	if audience := strings.TrimSpace(cfg.Audience); audience != "" {
		authed, err := idtoken.NewClient(ctx, audience, client.gcpOpts...)
		if err != nil {
			return nil, fmt.Errorf("create identity token client: %w", err)
		}
		authed.Timeout = timeout
		client.httpClient = authed
		return client, nil
	}
	client.httpClient = &http.Client{Timeout: timeout}
	return client, nil
}

func (c *Client) Schedule(ctx context.Context, req ScheduleRequest) error {
	if req.JobID == uuid.Nil || req.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "schedule request requires job and company")
	}
	return c.post(ctx, c.schedulerURL, "schedule", map[string]any{
		"type":      typeSchedule,
		"jobId":     req.JobID,
		"companyId": req.CompanyID,
		"userId":    req.UserID,
	})
}

func (c *Client) GeneratePurchaseOrders(ctx context.Context, req PurchaseOrdersRequest) error {
	if req.JobID == uuid.Nil || req.CompanyID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "purchase order request requires job and company")
	}
	bySupplier := req.PurchaseOrdersBySupplier
	if bySupplier == nil {
		bySupplier = map[string]string{}
	}
	return c.post(ctx, c.purchasingURL, "purchase order generation", map[string]any{
		"type":                       typePurchaseOrderFromJob,
		"jobId":                      req.JobID,
		"purchaseOrdersBySupplierId": bySupplier,
		"companyId":                  req.CompanyID,
		"userId":                     req.UserID,
	})
}

func (c *Client) post(ctx context.Context, url, name string, body any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "functions client not configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+name+" request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build "+name+" request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute "+name+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), name+" request failed")
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, responseBodyReadLimit))
	return nil
}
