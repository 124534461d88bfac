// Package opensearch serves BM25 keyword search over the precedent corpus.
package opensearch

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

var (
	ErrInvalidConfig    = errors.New(errors.ErrCodeValidation, "opensearch addresses are required")
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "opensearch connection failed")
)

const (
	defaultMaxRetries   = 3
	defaultRetryBackoff = 100 * time.Millisecond
	maxIdleConnsPerHost = 10
)

// Client wraps the OpenSearch client with a health flag.
type Client struct {
	os      *opensearch.Client
	index   string
	logger  logging.Logger
	healthy atomic.Bool
}

// NewClient builds a client for cfg and pings the cluster once.
func NewClient(ctx context.Context, cfg config.OpenSearchConfig, log logging.Logger) (*Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, ErrInvalidConfig
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	transport := &http.Transport{MaxIdleConnsPerHost: maxIdleConnsPerHost}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev clusters
	}
	osc, err := opensearch.NewClient(opensearch.Config{
		Addresses:     cfg.Addresses,
		Username:      cfg.Username,
		Password:      cfg.Password,
		MaxRetries:    defaultMaxRetries,
		RetryBackoff:  func(int) time.Duration { return defaultRetryBackoff },
		RetryOnStatus: []int{http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		Transport:     transport,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to create opensearch client")
	}

	c := newClientWith(osc, cfg.Index, log)
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newClientWith(osc *opensearch.Client, index string, log logging.Logger) *Client {
	if index == "" {
		index = config.DefaultOpenSearchIndex
	}
	return &Client{os: osc, index: index, logger: log.Named("opensearch")}
}

// Ping checks the cluster and records the result.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.os.Ping(c.os.Ping.WithContext(ctx))
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn("opensearch ping failed", logging.Err(err))
		return ErrConnectionFailed.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		c.healthy.Store(false)
		c.logger.Warn("opensearch ping returned error status", logging.Int("status", resp.StatusCode))
		return ErrConnectionFailed.WithDetail(resp.Status())
	}
	c.healthy.Store(true)
	return nil
}

func (c *Client) IsHealthy() bool { return c.healthy.Load() }

// Index returns the precedent index name.
func (c *Client) Index() string { return c.index }

// responseError turns an error response into an AppError with code, keeping
// the cluster's error type and reason when the body carries them.
func responseError(resp *opensearchapi.Response, code errors.ErrorCode, message string) error {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Reason != "" {
		return errors.Newf(code, "%s: %s - %s", message, body.Error.Type, body.Error.Reason)
	}
	return errors.Newf(code, "%s: status %d", message, resp.StatusCode)
}
