// internal/ledger/client.go
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/unlockd/unlockd-backend/internal/apperrors"
	"github.com/unlockd/unlockd-backend/internal/config"
)

// Client is the read-only view of the ledger the engine needs: settlement
// lookup for payment verification and account existence for receipt checks.
type Client interface {
	GetSettlement(ctx context.Context, ref string) (*SettlementRecord, error)
	AccountExists(ctx context.Context, address string) (bool, error)
}

// RPCClient talks JSON-RPC to a ledger node. Every call is bounded by the
// configured timeout in addition to the caller's context.
type RPCClient struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	reqID      atomic.Uint64
}

func NewRPCClient(cfg config.LedgerConfig) *RPCClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &RPCClient{
		url:        cfg.RPCURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RPCClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindLedgerUnavailable, err, "ledger RPC unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperrors.New(apperrors.KindLedgerUnavailable, "ledger RPC returned status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return apperrors.Wrap(apperrors.KindLedgerUnavailable, err, "failed to decode ledger response")
	}
	if rpcResp.Error != nil {
		return apperrors.New(apperrors.KindLedgerUnavailable, "ledger RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if string(rpcResp.Result) == "null" || len(rpcResp.Result) == 0 {
		return apperrors.New(apperrors.KindNotFound, "%s: no result", method)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return apperrors.Wrap(apperrors.KindLedgerUnavailable, err, "unexpected %s result shape", method)
	}
	return nil
}

// GetSettlement fetches a finalized settlement record by reference.
func (c *RPCClient) GetSettlement(ctx context.Context, ref string) (*SettlementRecord, error) {
	var record SettlementRecord
	if err := c.call(ctx, "getSettlement", []interface{}{ref, map[string]string{"commitment": "finalized"}}, &record); err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "settlement %q not found", ref)
		}
		return nil, err
	}
	return &record, nil
}

// AccountExists reports whether an account exists at the given address.
// Absence is a normal answer, not an error.
func (c *RPCClient) AccountExists(ctx context.Context, address string) (bool, error) {
	var info AccountInfo
	err := c.call(ctx, "getAccountInfo", []interface{}{address}, &info)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ Client = (*RPCClient)(nil)

func (c *RPCClient) String() string {
	return fmt.Sprintf("ledger-rpc(%s)", c.url)
}
