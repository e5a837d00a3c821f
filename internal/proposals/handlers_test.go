package proposals

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/pkg/gov"
)

func newTestService(f *fakeCaller) *Service {
	cfg := testConfig()
	return NewService(NewGateway(f, cfg), cfg)
}

func TestGetProposalHandler(t *testing.T) {
	f := &fakeCaller{views: map[string]string{
		"vote.near.get_proposal": `{"id":8,"title":"T","status":"active"}`,
	}}

	s := newTestService(f)

	t.Run("ok", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.GetProposal(rec, httptest.NewRequest(http.MethodGet, "/get-proposal?proposalId=8", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Proposal gov.Proposal `json:"proposal"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}

		if resp.Proposal.ID != 8 {
			t.Errorf("proposal id = %d", resp.Proposal.ID)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.GetProposal(rec, httptest.NewRequest(http.MethodGet, "/get-proposal?proposalId=abc", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestService(&fakeCaller{}).GetProposal(rec, httptest.NewRequest(http.MethodGet, "/get-proposal?proposalId=99", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestApproveProposalHandler(t *testing.T) {
	configView := `{"owner_account_id":"owner.near","reviewer_ids":["rev.near"],"guardians":[]}`

	t.Run("reviewer gets a payload", func(t *testing.T) {
		f := &fakeCaller{views: map[string]string{
			"vote.near.get_config":   configView,
			"vote.near.get_proposal": `{"id":2,"status":"Created"}`,
		}}

		rec := httptest.NewRecorder()
		newTestService(f).ApproveProposal(rec, httptest.NewRequest(http.MethodGet, "/approve-proposal?proposalId=2&accountId=rev.near", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			TransactionPayload gov.TransactionPayload `json:"transactionPayload"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}

		if resp.TransactionPayload.ReceiverID != "vote.near" {
			t.Errorf("receiverId = %s", resp.TransactionPayload.ReceiverID)
		}
	})

	t.Run("no permission is an error body, not a payload", func(t *testing.T) {
		f := &fakeCaller{views: map[string]string{
			"vote.near.get_config":   configView,
			"vote.near.get_proposal": `{"id":2,"status":"Created"}`,
		}}

		rec := httptest.NewRecorder()
		newTestService(f).ApproveProposal(rec, httptest.NewRequest(http.MethodGet, "/approve-proposal?proposalId=2&accountId=nobody.near", nil))

		var resp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}

		if resp.Error == "" {
			t.Error("expected {error} body")
		}
	})

	t.Run("already approved proposal is rejected", func(t *testing.T) {
		f := &fakeCaller{views: map[string]string{
			"vote.near.get_config":   configView,
			"vote.near.get_proposal": `{"id":2,"status":"Approved"}`,
		}}

		rec := httptest.NewRecorder()
		newTestService(f).ApproveProposal(rec, httptest.NewRequest(http.MethodGet, "/approve-proposal?proposalId=2&accountId=owner.near", nil))

		var resp struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}

		if resp.Error == "" {
			t.Error("expected {error} body")
		}
	})
}

func TestVoteHandler(t *testing.T) {
	f := &fakeCaller{views: map[string]string{
		"vote.near.get_proposal": `{"id":3,"status":"active","voting_options":["Yes","No"],"snapshot_and_state":{"snapshot":{"block_height":555}}}`,
		"venear.near.get_proof":  `[["h1"],{"balance":"10"}]`,
	}}

	rec := httptest.NewRecorder()
	newTestService(f).Vote(rec, httptest.NewRequest(http.MethodGet, "/vote?proposalId=3&vote=No&accountId=alice.near", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TransactionPayload gov.TransactionPayload `json:"transactionPayload"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}

	action := resp.TransactionPayload.Actions[0]
	if action.Params.MethodName != "vote" || action.Params.Gas != gov.GasVote {
		t.Errorf("action = %+v", action)
	}

	// proof must have been requested at the proposal's snapshot height
	if len(f.proofHeights) != 1 || f.proofHeights[0] != 555 {
		t.Errorf("proof heights = %v, want [555]", f.proofHeights)
	}
}

func TestCreateProposalHandlerValidation(t *testing.T) {
	s := newTestService(&fakeCaller{})

	rec := httptest.NewRecorder()
	s.CreateProposal(rec, httptest.NewRequest(http.MethodGet, "/create-proposal?title=only-title", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMissingContractConfigIs500(t *testing.T) {
	s := NewService(NewGateway(&fakeCaller{}, &config.Config{}), &config.Config{})

	rec := httptest.NewRecorder()
	s.GetProposal(rec, httptest.NewRequest(http.MethodGet, "/get-proposal?proposalId=1", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
