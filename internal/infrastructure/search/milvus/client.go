// Package milvus stores precedent embeddings in a Milvus collection and
// serves vector similarity search over them.
package milvus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

// clientFactory lets tests swap in a fake Milvus client.
type clientFactory func(ctx context.Context, conf client.Config) (client.Client, error)

var milvusNewClient clientFactory = client.NewClient

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus unhealthy")
)

const (
	defaultConnectTimeout = 10 * time.Second
	keepAliveTime         = 60 * time.Second
	keepAliveTimeout      = 20 * time.Second
)

// Client wraps the SDK client with a health flag.
type Client struct {
	mu      sync.RWMutex
	mc      client.Client
	cfg     config.MilvusConfig
	logger  logging.Logger
	healthy atomic.Bool
}

// NewClient connects to Milvus and verifies the connection.
func NewClient(ctx context.Context, cfg config.MilvusConfig, log logging.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New(errors.ErrCodeValidation, "milvus address is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	connectTimeout := cfg.Timeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mc, err := milvusNewClient(connectCtx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                keepAliveTime,
				Timeout:             keepAliveTimeout,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, ErrConnectionFailed.WithCause(err).WithDetail(cfg.Address)
	}

	c := newClientWith(mc, cfg, log)
	if err := c.CheckHealth(connectCtx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.logger.Info("milvus client connected", logging.String("address", cfg.Address))
	return c, nil
}

func newClientWith(mc client.Client, cfg config.MilvusConfig, log logging.Logger) *Client {
	return &Client{mc: mc, cfg: cfg, logger: log.Named("milvus")}
}

// CheckHealth asks the server for its state and records the result.
func (c *Client) CheckHealth(ctx context.Context) error {
	mc := c.SDK()
	if mc == nil {
		return ErrConnectionFailed
	}
	state, err := mc.CheckHealth(ctx)
	if err != nil || state == nil || !state.IsHealthy {
		c.healthy.Store(false)
		c.logger.Warn("milvus health check failed", logging.Err(err))
		if err != nil {
			return ErrUnhealthy.WithCause(err)
		}
		return ErrUnhealthy
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the result of the last health check.
func (c *Client) IsHealthy() bool { return c.healthy.Load() }

// SDK returns the underlying SDK client, nil after Close.
func (c *Client) SDK() client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mc
}

// Close releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mc == nil {
		return nil
	}
	err := c.mc.Close()
	c.mc = nil
	c.healthy.Store(false)
	c.logger.Info("milvus client closed")
	return err
}
