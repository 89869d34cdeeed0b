// Package rpc implements the ChainSource port over a plain HTTP JSON-RPC
// endpoint (Alchemy, Infura, a self-hosted node). Requests are paced by a
// rate limiter and transient failures are retried with capped exponential
// backoff; a response is either complete or an error, never partial.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/berachain-tools/beradrop/internal/pkg/hexutil"
	"github.com/berachain-tools/beradrop/internal/pkg/retry"
	"github.com/berachain-tools/beradrop/internal/ports/outbound"
)

// Compile-time check that Client implements outbound.ChainSource
var _ outbound.ChainSource = (*Client)(nil)

// ErrNotFound is returned when the node reports no object for the
// requested hash (null result).
var ErrNotFound = errors.New("not found")

// ClientConfig holds configuration for the JSON-RPC client.
type ClientConfig struct {
	// URL is the HTTP JSON-RPC endpoint.
	URL string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// RateLimitPerSec caps outgoing requests per second. This is the
	// inter-request pacing that keeps log queries inside provider limits.
	RateLimitPerSec float64

	// Retry is the policy applied to transient transport failures.
	Retry retry.Config

	// Logger receives per-attempt diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// ClientConfigDefaults returns a config with default values.
func ClientConfigDefaults() ClientConfig {
	return ClientConfig{
		Timeout:         30 * time.Second,
		RateLimitPerSec: 10,
		Retry: retry.Config{
			MaxRetries:     5,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			BackoffFactor:  2.0,
			Jitter:         false, // deterministic pacing against provider limits
		},
		Logger: slog.Default(),
	}
}

// Client is an HTTP JSON-RPC implementation of the ChainSource port.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a new JSON-RPC chain client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.URL == "" {
		return nil, errors.New("URL is required")
	}

	defaults := ClientConfigDefaults()
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.RateLimitPerSec == 0 {
		config.RateLimitPerSec = defaults.RateLimitPerSec
	}
	if config.Retry == (retry.Config{}) {
		config.Retry = defaults.Retry
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimitPerSec), 1),
		logger:     config.Logger.With("component", "rpc-client"),
	}, nil
}

// FilterLogs fetches logs for one contract and one topic constrained to
// the inclusive block range [fromBlock, toBlock].
func (c *Client) FilterLogs(ctx context.Context, address common.Address, topic common.Hash, fromBlock, toBlock int64) ([]outbound.RawLog, error) {
	filter := logFilter{
		FromBlock: fmt.Sprintf("0x%x", fromBlock),
		ToBlock:   fmt.Sprintf("0x%x", toBlock),
		Address:   address.Hex(),
		Topics:    []string{topic.Hex()},
	}

	resp, err := c.call(ctx, "eth_getLogs", []interface{}{filter})
	if err != nil {
		return nil, fmt.Errorf("eth_getLogs [%d, %d]: %w", fromBlock, toBlock, err)
	}

	var logs []outbound.RawLog
	if err := json.Unmarshal(resp.Result, &logs); err != nil {
		return nil, fmt.Errorf("failed to parse logs: %w", err)
	}
	return logs, nil
}

// TransactionSender resolves the `from` address of a transaction.
// Returns ErrNotFound if the node does not know the transaction.
func (c *Client) TransactionSender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	resp, err := c.call(ctx, "eth_getTransactionByHash", []interface{}{txHash.Hex()})
	if err != nil {
		return common.Address{}, fmt.Errorf("eth_getTransactionByHash %s: %w", txHash.Hex(), err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return common.Address{}, fmt.Errorf("transaction %s: %w", txHash.Hex(), ErrNotFound)
	}

	var tx transaction
	if err := json.Unmarshal(resp.Result, &tx); err != nil {
		return common.Address{}, fmt.Errorf("failed to parse transaction: %w", err)
	}
	if !common.IsHexAddress(tx.From) {
		return common.Address{}, fmt.Errorf("transaction %s: invalid from address %q", txHash.Hex(), tx.From)
	}
	return common.HexToAddress(tx.From), nil
}

// LatestBlockNumber fetches the current chain head block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (int64, error) {
	resp, err := c.call(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}

	var result string
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return 0, fmt.Errorf("failed to parse block number: %w", err)
	}
	return hexutil.ParseInt64(result)
}

// nonRetryableError wraps errors that should not be retried.
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var nonRetryable *nonRetryableError
	return !errors.As(err, &nonRetryable)
}

// call makes a rate-limited HTTP JSON-RPC call with retry on transient
// failures.
func (c *Client) call(ctx context.Context, method string, params []interface{}) (*jsonRPCResponse, error) {
	req := jsonRPCRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	onRetry := func(attempt int, err error, backoff time.Duration) {
		c.logger.Warn("rpc call failed, retrying",
			"method", method,
			"attempt", attempt,
			"backoff", backoff,
			"error", err)
	}

	var rpcResp jsonRPCResponse
	err = retry.DoVoid(ctx, c.config.Retry, isRetryable, onRetry, func() error {
		// Reset to avoid leftover fields from previous attempts
		rpcResp = jsonRPCResponse{}

		if err := c.limiter.Wait(ctx); err != nil {
			return &nonRetryableError{err: err}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(reqBytes))
		if err != nil {
			return &nonRetryableError{err: fmt.Errorf("failed to create request: %w", err)}
		}
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		defer httpResp.Body.Close()

		// Rate-limit and server-side failures are transient
		if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("HTTP %d: server error", httpResp.StatusCode)
		}
		if httpResp.StatusCode != http.StatusOK {
			return &nonRetryableError{err: fmt.Errorf("HTTP %d", httpResp.StatusCode)}
		}

		respBytes, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if err := json.Unmarshal(respBytes, &rpcResp); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}

		if rpcResp.Error != nil {
			return fmt.Errorf("RPC error: %s (code: %d)", rpcResp.Error.Message, rpcResp.Error.Code)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &rpcResp, nil
}
