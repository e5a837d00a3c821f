package nearrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neargov/gateway/pkg/gov"
)

func viewResultBody(result string) string {
	b := []byte(result)
	ints := make([]int, len(b))
	for i, c := range b {
		ints[i] = int(c)
	}

	encoded, _ := json.Marshal(ints)
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"result":{"result":%s,"logs":[],"block_height":100}}`, encoded)
}

func TestCallDecodesViewResult(t *testing.T) {
	var gotParams map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		gotParams, _ = req["params"].(map[string]any)

		fmt.Fprint(w, viewResultBody(`{"title":"Test","id":3}`))
	}))
	defer srv.Close()

	s := NewService(srv.URL)

	b, err := s.Call(context.Background(), "vote.near", "get_proposal", map[string]any{"proposal_id": 3})
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		Title string `json:"title"`
		ID    uint64 `json:"id"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}

	if out.Title != "Test" || out.ID != 3 {
		t.Errorf("decoded %+v", out)
	}

	if gotParams["request_type"] != "call_function" || gotParams["finality"] != "final" {
		t.Errorf("unexpected params: %v", gotParams)
	}

	wantArgs := base64.StdEncoding.EncodeToString([]byte(`{"proposal_id":3}`))
	if gotParams["args_base64"] != wantArgs {
		t.Errorf("args_base64 = %v, want %s", gotParams["args_base64"], wantArgs)
	}
}

func TestCallAtBlockPinsHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		params, _ := req["params"].(map[string]any)

		if params["block_id"] != float64(12345) {
			t.Errorf("block_id = %v, want 12345", params["block_id"])
		}

		if _, ok := params["finality"]; ok {
			t.Error("pinned query must not carry finality")
		}

		fmt.Fprint(w, viewResultBody(`"ok"`))
	}))
	defer srv.Close()

	s := NewService(srv.URL)

	if _, err := s.CallAtBlock(context.Background(), "venear.near", "get_proof", nil, 12345); err != nil {
		t.Fatal(err)
	}
}

func TestCallEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"result":[],"logs":[]}}`)
	}))
	defer srv.Close()

	s := NewService(srv.URL)

	_, err := s.Call(context.Background(), "venear.near", "get_lockup_account_id", nil)
	if !errors.Is(err, gov.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}

func TestCallProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"server error","cause":{"name":"TIMEOUT_ERROR"}}}`)
	}))
	defer srv.Close()

	s := NewService(srv.URL)

	_, err := s.Call(context.Background(), "vote.near", "get_proposal", nil)

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}

	if perr.Name != "TIMEOUT_ERROR" {
		t.Errorf("name = %s", perr.Name)
	}
}

func TestCallTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewService(srv.URL)

	_, err := s.Call(context.Background(), "vote.near", "get_proposal", nil)

	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}

	if terr.Status != http.StatusBadGateway {
		t.Errorf("status = %d", terr.Status)
	}
}

func TestViewAccount(t *testing.T) {
	t.Run("existing account", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			params, _ := req["params"].(map[string]any)

			if params["request_type"] != "view_account" {
				t.Errorf("request_type = %v", params["request_type"])
			}

			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"amount":"1000000000000000000000000","locked":"0","storage_usage":500}}`)
		}))
		defer srv.Close()

		s := NewService(srv.URL)

		view, err := s.ViewAccount(context.Background(), "alice.near")
		if err != nil {
			t.Fatal(err)
		}

		if view.Amount != "1000000000000000000000000" {
			t.Errorf("amount = %s", view.Amount)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"account ghost.near does not exist while viewing","cause":{"name":"UNKNOWN_ACCOUNT"}}}`)
		}))
		defer srv.Close()

		s := NewService(srv.URL)

		_, err := s.ViewAccount(context.Background(), "ghost.near")
		if !errors.Is(err, gov.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
	})
}
