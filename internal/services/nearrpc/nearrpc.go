package nearrpc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/neargov/gateway/pkg/gov"
)

// Service is the single chokepoint for NEAR JSON-RPC reads. It issues
// query requests, decodes byte-array view results and classifies
// failures. No retries, no caching: a failed call is surfaced or
// defaulted by the caller immediately.
type Service struct {
	endpoint string
	client   *http.Client
}

func NewService(endpoint string) *Service {
	return &Service{
		endpoint: endpoint,
		client:   http.DefaultClient,
	}
}

// NewServiceWithClient allows injecting a custom HTTP client (tests).
func NewServiceWithClient(endpoint string, client *http.Client) *Service {
	return &Service{
		endpoint: endpoint,
		client:   client,
	}
}

// TransportError is a non-2xx HTTP response from the RPC endpoint.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc transport error: status %d: %s", e.Status, e.Body)
}

// ProtocolError is an error field carried inside the JSON-RPC envelope.
type ProtocolError struct {
	Code    int
	Name    string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("rpc protocol error: %s (%d): %s", e.Name, e.Code, e.Message)
}

type rpcRequest struct {
	Version string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Name    string `json:"name"`
	Cause   *struct {
		Name string `json:"name"`
	} `json:"cause"`
	Data json.RawMessage `json:"data"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// viewBytes decodes the RPC's byte-array encoding of view results
// (a JSON array of byte values, not a base64 string).
type viewBytes []byte

func (v *viewBytes) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}

	out := make([]byte, len(ints))
	for i, n := range ints {
		out[i] = byte(n)
	}

	*v = out
	return nil
}

type callFunctionResult struct {
	Result      viewBytes `json:"result"`
	Logs        []string  `json:"logs"`
	BlockHeight uint64    `json:"block_height"`
	Error       string    `json:"error"`
}

func (s *Service) query(ctx context.Context, params any) (json.RawMessage, error) {
	body, err := json.Marshal(&rpcRequest{
		Version: "2.0",
		ID:      1,
		Method:  "query",
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Status: 0, Body: err.Error()}
	}

	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Body: string(b)}
	}

	var env rpcResponse
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: err.Error()}
	}

	if env.Error != nil {
		perr := &ProtocolError{
			Code:    env.Error.Code,
			Name:    env.Error.Name,
			Message: env.Error.Message,
		}
		if env.Error.Cause != nil && env.Error.Cause.Name != "" {
			perr.Name = env.Error.Cause.Name
		}

		return nil, perr
	}

	return env.Result, nil
}

func (s *Service) callFunction(ctx context.Context, params map[string]any) ([]byte, error) {
	contractID, _ := params["account_id"].(string)
	method, _ := params["method_name"].(string)

	raw, err := s.query(ctx, params)
	if err != nil {
		return nil, err
	}

	var res callFunctionResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("%s.%s: decoding view result: %w", contractID, method, err)
	}

	if res.Error != "" {
		return nil, &ProtocolError{Name: "ContractExecutionError", Message: res.Error}
	}

	// The standard "view method reverted / returned nothing" signal on
	// this chain. Callers decide whether it means not-found or none.
	if len(res.Result) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", contractID, method, gov.ErrEmptyResult)
	}

	return res.Result, nil
}

func encodeArgs(args any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}

	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// Call issues a call_function query at final finality. The returned
// bytes are the view method's JSON result.
func (s *Service) Call(ctx context.Context, contractID, method string, args any) ([]byte, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	return s.callFunction(ctx, map[string]any{
		"request_type": "call_function",
		"finality":     "final",
		"account_id":   contractID,
		"method_name":  method,
		"args_base64":  encoded,
	})
}

// CallAtBlock issues a call_function query pinned to a block height.
// Used for proof queries, which must run against a proposal's snapshot
// block and nothing else.
func (s *Service) CallAtBlock(ctx context.Context, contractID, method string, args any, blockHeight uint64) ([]byte, error) {
	encoded, err := encodeArgs(args)
	if err != nil {
		return nil, err
	}

	return s.callFunction(ctx, map[string]any{
		"request_type": "call_function",
		"block_id":     blockHeight,
		"account_id":   contractID,
		"method_name":  method,
		"args_base64":  encoded,
	})
}

// ViewAccount fetches native account state. A missing account is
// gov.ErrAccountNotFound, distinct from a zero balance.
func (s *Service) ViewAccount(ctx context.Context, accountID string) (*gov.AccountView, error) {
	raw, err := s.query(ctx, map[string]any{
		"request_type": "view_account",
		"finality":     "final",
		"account_id":   accountID,
	})
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) && isUnknownAccount(perr) {
			return nil, fmt.Errorf("%s: %w", accountID, gov.ErrAccountNotFound)
		}

		return nil, err
	}

	var view gov.AccountView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("%s: decoding account view: %w", accountID, err)
	}

	return &view, nil
}

func isUnknownAccount(perr *ProtocolError) bool {
	return perr.Name == "UNKNOWN_ACCOUNT" || strings.Contains(perr.Message, "does not exist")
}
