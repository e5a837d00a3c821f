package gov

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWithdrawPayload(t *testing.T) {
	t.Run("binding balance is the smaller one", func(t *testing.T) {
		liquid := "5000000000000000000000000" // 5 NEAR
		owners := "3000000000000000000000000" // 3 NEAR

		p, err := WithdrawPayload("alice.lockup.near", "alice.near", liquid, owners)
		if err != nil {
			t.Fatal(err)
		}

		args, ok := p.Actions[0].Params.Args.(map[string]any)
		if !ok {
			t.Fatal("expected map args")
		}

		if args["amount"] != owners {
			t.Errorf("amount = %v, want %s", args["amount"], owners)
		}
	})

	t.Run("refuses below 1 NEAR", func(t *testing.T) {
		liquid := "999999999999999999999999" // just under 1 NEAR
		owners := "5000000000000000000000000"

		_, err := WithdrawPayload("alice.lockup.near", "alice.near", liquid, owners)
		if !errors.Is(err, ErrBelowMinimumWithdrawal) {
			t.Errorf("expected ErrBelowMinimumWithdrawal, got %v", err)
		}
	})

	t.Run("exactly 1 NEAR is allowed", func(t *testing.T) {
		one := "1000000000000000000000000"

		_, err := WithdrawPayload("alice.lockup.near", "alice.near", one, one)
		if err != nil {
			t.Errorf("expected payload, got %v", err)
		}
	})
}

func TestPayloadShapes(t *testing.T) {
	p := VotePayload("vote.near", Vote{
		ProposalID:  7,
		Vote:        1,
		MerkleProof: json.RawMessage(`["abc"]`),
		VAccount:    json.RawMessage(`{"balance":"1"}`),
	})

	if p.ReceiverID != "vote.near" {
		t.Errorf("receiverId = %s", p.ReceiverID)
	}

	if len(p.Actions) != 1 || p.Actions[0].Type != ActionFunctionCall {
		t.Fatalf("unexpected actions: %+v", p.Actions)
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	body := string(b)
	for _, want := range []string{`"methodName":"vote"`, `"gas":"200000000000000"`, `"proposal_id":7`, `"merkle_proof":["abc"]`} {
		if !strings.Contains(body, want) {
			t.Errorf("payload json missing %s: %s", want, body)
		}
	}
}

func TestGasAndDepositAreIntegerStrings(t *testing.T) {
	payloads := []TransactionPayload{
		TransferPayload("bob.near", "1000000000000000000000000"),
		CreateProposalPayload("vote.near", ProposalMetadata{Title: "t", Description: "d", VotingOptions: []string{"Yes", "No"}}),
		ApproveProposalPayload("vote.near", 1),
		DelegateAllPayload("venear.near", "bob.near"),
		UndelegatePayload("venear.near"),
		DeployLockupPayload("venear.near", "2000000000000000000000000"),
		DeleteLockupPayload("alice.lockup.near"),
		DepositAndStakePayload("alice.lockup.near", "1"),
		UnstakePayload("alice.lockup.near", "1"),
		SelectStakingPoolPayload("alice.lockup.near", "pool.near"),
		RefreshStakingPoolBalancePayload("alice.lockup.near"),
		LockNearPayload("alice.lockup.near"),
		BeginUnlockPayload("alice.lockup.near"),
		EndUnlockPayload("alice.lockup.near"),
	}

	for _, p := range payloads {
		for _, a := range p.Actions {
			if strings.ContainsAny(a.Params.Gas, ".eE") || strings.ContainsAny(a.Params.Deposit, ".eE") {
				t.Errorf("non-integer gas/deposit in %s: %q %q", p.ReceiverID, a.Params.Gas, a.Params.Deposit)
			}

			if a.Type == ActionFunctionCall && a.Params.Gas == "" {
				t.Errorf("missing gas for %s %s", p.ReceiverID, a.Params.MethodName)
			}
		}
	}
}

func TestStakingPayloadsCarryAmountAsArgument(t *testing.T) {
	for _, p := range []TransactionPayload{
		DepositAndStakePayload("alice.lockup.near", "42"),
		UnstakePayload("alice.lockup.near", "42"),
	} {
		params := p.Actions[0].Params

		// the lockup stakes its own balance, so no deposit rides along
		if params.Deposit != DepositNone {
			t.Errorf("%s: deposit = %s, want 0", params.MethodName, params.Deposit)
		}

		args, ok := params.Args.(map[string]any)
		if !ok || args["amount"] != "42" {
			t.Errorf("%s: args = %v", params.MethodName, params.Args)
		}
	}
}

func TestTransferPayload(t *testing.T) {
	p := TransferPayload("bob.near", "42")

	if p.Actions[0].Type != ActionTransfer {
		t.Errorf("type = %s, want Transfer", p.Actions[0].Type)
	}

	if p.Actions[0].Params.Deposit != "42" {
		t.Errorf("deposit = %s, want 42", p.Actions[0].Params.Deposit)
	}

	if p.Actions[0].Params.MethodName != "" {
		t.Error("transfer must not carry a method name")
	}
}
