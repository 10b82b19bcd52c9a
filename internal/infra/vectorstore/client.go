package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/telemetry"
)

// Document is one entry in the vector store collaborator. Content is
// opaque to this server; the store owns chunking and embedding.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchMatch is one scored search result.
type SearchMatch struct {
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Matches []SearchMatch `json:"matches"`
}

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics domain.Metrics
}

// Client talks to the HTTP vector-store collaborator. The store is an
// opaque backend: failures map to typed errors (404 NOT_FOUND, 5xx
// retryable UNAVAILABLE) and every call is measured.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	metrics domain.Metrics
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = domain.DefaultVectorStoreBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultVectorStoreTimeoutSeconds * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("vectorstore"),
		metrics: metrics,
	}
}

// Health probes the store's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.observe(ctx, "health", func(ctx context.Context) error {
		return c.do(ctx, "vectorstore.Health", http.MethodGet, "/health", nil, nil)
	})
}

// AddDocument pushes doc into the store, replacing any existing content
// under the same ID.
func (c *Client) AddDocument(ctx context.Context, doc Document) error {
	return c.observe(ctx, "add_document", func(ctx context.Context) error {
		return c.do(ctx, "vectorstore.AddDocument", http.MethodPost, "/documents", doc, nil)
	})
}

// GetDocument fetches one document by ID.
func (c *Client) GetDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := c.observe(ctx, "get_document", func(ctx context.Context) error {
		return c.do(ctx, "vectorstore.GetDocument", http.MethodGet, "/documents/"+url.PathEscape(id), nil, &doc)
	})
	return doc, err
}

// DeleteDocument removes one document by ID. Deleting an absent
// document is a NOT_FOUND error.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.observe(ctx, "delete_document", func(ctx context.Context) error {
		return c.do(ctx, "vectorstore.DeleteDocument", http.MethodDelete, "/documents/"+url.PathEscape(id), nil, nil)
	})
}

// SearchDocuments runs a similarity query. limit caps the match count;
// non-positive means the store's default.
func (c *Client) SearchDocuments(ctx context.Context, query string, limit int) ([]SearchMatch, error) {
	var resp searchResponse
	err := c.observe(ctx, "search_documents", func(ctx context.Context) error {
		return c.do(ctx, "vectorstore.SearchDocuments", http.MethodPost, "/documents/search",
			searchRequest{Query: query, Limit: limit}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *Client) observe(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	c.metrics.ObserveVectorStoreCall(operation, time.Since(start), err)
	if err != nil {
		c.logger.Warn("vector store call failed",
			telemetry.OperationField(operation),
			telemetry.DurationField(time.Since(start)),
			zap.Error(err),
		)
	}
	return err
}

func (c *Client) do(ctx context.Context, errOp, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return domain.E(domain.CodeInvalidArgument, errOp, "encode request body", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return domain.E(domain.CodeInternal, errOp, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		unavailable := domain.E(domain.CodeUnavailable, errOp, "vector store unreachable", err)
		unavailable.Retryable = true
		return unavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.E(domain.CodeInternal, errOp, "decode response body", err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.E(domain.CodeNotFound, errOp, errorMessage(resp), domain.ErrDocumentNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return domain.E(domain.CodeInvalidArgument, errOp, errorMessage(resp), nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		unavailable := domain.E(domain.CodeUnavailable, errOp, errorMessage(resp), nil)
		unavailable.Retryable = true
		return unavailable
	default:
		return domain.E(domain.CodeInternal, errOp,
			fmt.Sprintf("unexpected status: %s", resp.Status), nil)
	}
}

// errorMessage pulls the store's error field out of the body, falling
// back to the HTTP status line.
func errorMessage(resp *http.Response) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return resp.Status
}
