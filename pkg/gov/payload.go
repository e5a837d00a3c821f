package gov

import (
	"errors"

	"github.com/neargov/gateway/internal/common"
)

// Action types understood by NEAR wallets.
const (
	ActionFunctionCall = "FunctionCall"
	ActionTransfer     = "Transfer"
)

// Gas budgets per action, in gas units (never floating point). Values
// are 100-200 Tgas depending on how deep the receiving contract's
// cross-contract call chain goes.
const (
	GasDefault         = "100000000000000" // 100 Tgas
	GasCreateProposal  = "100000000000000" // 100 Tgas
	GasApproveProposal = "100000000000000" // 100 Tgas
	GasVote            = "200000000000000" // 200 Tgas
	GasDelegate        = "100000000000000" // 100 Tgas
	GasDeployLockup    = "100000000000000" // 100 Tgas
	GasDeleteLockup    = "200000000000000" // 200 Tgas
	GasStakingAction   = "200000000000000" // 200 Tgas
	GasLockupTransfer  = "150000000000000" // 150 Tgas
	GasLock            = "100000000000000" // 100 Tgas
)

// Deposits attached to function calls, in yocto-NEAR.
const (
	DepositNone           = "0"
	DepositOneYocto       = "1"
	DepositCreateProposal = "200000000000000000000000" // 0.2 NEAR, proposal storage bond
)

// ErrBelowMinimumWithdrawal is a user-facing precondition, not a
// server fault.
var ErrBelowMinimumWithdrawal = errors.New("withdrawable balance is below the 1 NEAR minimum")

type ActionParams struct {
	MethodName string `json:"methodName,omitempty"`
	Gas        string `json:"gas,omitempty"`
	Deposit    string `json:"deposit"`
	Args       any    `json:"args,omitempty"`
}

type Action struct {
	Type   string       `json:"type"`
	Params ActionParams `json:"params"`
}

// TransactionPayload is the unsigned transaction shape handed to a
// wallet for signing and broadcast. This system never signs.
type TransactionPayload struct {
	ReceiverID string   `json:"receiverId"`
	Actions    []Action `json:"actions"`
}

func functionCall(receiverID, method, gas, deposit string, args any) TransactionPayload {
	return TransactionPayload{
		ReceiverID: receiverID,
		Actions: []Action{
			{
				Type: ActionFunctionCall,
				Params: ActionParams{
					MethodName: method,
					Gas:        gas,
					Deposit:    deposit,
					Args:       args,
				},
			},
		},
	}
}

// TransferPayload builds a plain native transfer.
func TransferPayload(receiverID, amountYocto string) TransactionPayload {
	return TransactionPayload{
		ReceiverID: receiverID,
		Actions: []Action{
			{
				Type:   ActionTransfer,
				Params: ActionParams{Deposit: amountYocto},
			},
		},
	}
}

// ProposalMetadata is the create_proposal argument shape.
type ProposalMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Link          string   `json:"link,omitempty"`
	VotingOptions []string `json:"voting_options"`
}

func CreateProposalPayload(votingContract string, metadata ProposalMetadata) TransactionPayload {
	return functionCall(votingContract, "create_proposal", GasCreateProposal, DepositCreateProposal, map[string]any{
		"metadata": metadata,
	})
}

func ApproveProposalPayload(votingContract string, proposalID uint64) TransactionPayload {
	return functionCall(votingContract, "approve_proposal", GasApproveProposal, DepositOneYocto, map[string]any{
		"proposal_id": proposalID,
	})
}

func VotePayload(votingContract string, vote Vote) TransactionPayload {
	return functionCall(votingContract, "vote", GasVote, DepositNone, map[string]any{
		"proposal_id":  vote.ProposalID,
		"vote":         vote.Vote,
		"merkle_proof": vote.MerkleProof,
		"v_account":    vote.VAccount,
	})
}

func DelegateAllPayload(venearContract, receiverID string) TransactionPayload {
	return functionCall(venearContract, "delegate_all", GasDelegate, DepositOneYocto, map[string]any{
		"receiver_id": receiverID,
	})
}

func UndelegatePayload(venearContract string) TransactionPayload {
	return functionCall(venearContract, "undelegate", GasDelegate, DepositOneYocto, nil)
}

// DeployLockupPayload attaches the live deployment cost fetched from
// the veNEAR contract, not a constant: the contract can change it.
func DeployLockupPayload(venearContract, deploymentCostYocto string) TransactionPayload {
	return functionCall(venearContract, "deploy_lockup", GasDeployLockup, deploymentCostYocto, nil)
}

func DeleteLockupPayload(lockupID string) TransactionPayload {
	return functionCall(lockupID, "delete_lockup", GasDeleteLockup, DepositOneYocto, nil)
}

// DepositAndStakePayload stakes funds the lockup already holds. The
// amount is a contract argument, not an attached deposit: the lockup
// moves its own balance to the selected pool.
func DepositAndStakePayload(lockupID, amountYocto string) TransactionPayload {
	return functionCall(lockupID, "deposit_and_stake", GasStakingAction, DepositNone, map[string]any{
		"amount": amountYocto,
	})
}

func UnstakePayload(lockupID, amountYocto string) TransactionPayload {
	return functionCall(lockupID, "unstake", GasStakingAction, DepositNone, map[string]any{
		"amount": amountYocto,
	})
}

func SelectStakingPoolPayload(lockupID, stakingPoolID string) TransactionPayload {
	return functionCall(lockupID, "select_staking_pool", GasStakingAction, DepositNone, map[string]any{
		"staking_pool_account_id": stakingPoolID,
	})
}

func RefreshStakingPoolBalancePayload(lockupID string) TransactionPayload {
	return functionCall(lockupID, "refresh_staking_pool_balance", GasStakingAction, DepositNone, nil)
}

// WithdrawPayload emits a lockup withdrawal for the binding balance,
// min(liquidAmount, liquidOwnersBalance): funds must be both liquid in
// the lockup's accounting and actually owed to the owner. Refuses
// below the 1 NEAR floor.
func WithdrawPayload(lockupID, receiverID, liquidAmount, liquidOwnersBalance string) (TransactionPayload, error) {
	amount, err := common.MinYocto(liquidAmount, liquidOwnersBalance)
	if err != nil {
		return TransactionPayload{}, err
	}

	c, err := common.CmpYocto(amount, common.OneNear)
	if err != nil {
		return TransactionPayload{}, err
	}
	if c < 0 {
		return TransactionPayload{}, ErrBelowMinimumWithdrawal
	}

	return functionCall(lockupID, "transfer", GasLockupTransfer, DepositNone, map[string]any{
		"amount":      amount,
		"receiver_id": receiverID,
	}), nil
}

func LockNearPayload(lockupID string) TransactionPayload {
	return functionCall(lockupID, "lock_near", GasLock, DepositNone, nil)
}

func BeginUnlockPayload(lockupID string) TransactionPayload {
	return functionCall(lockupID, "begin_unlock_near", GasLock, DepositNone, nil)
}

func EndUnlockPayload(lockupID string) TransactionPayload {
	return functionCall(lockupID, "end_unlock_near", GasLock, DepositNone, nil)
}
