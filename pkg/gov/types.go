package gov

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/neargov/gateway/internal/common"
)

var (
	// ErrEmptyResult signals a view call that returned no bytes. Callers
	// decide whether that means "not found" or "zero/none" for the
	// specific method.
	ErrEmptyResult = errors.New("empty view result")

	// ErrAccountNotFound signals a native account lookup against an
	// account id that does not exist on chain.
	ErrAccountNotFound = errors.New("account does not exist")
)

// Caller is the single chokepoint for chain reads. Implemented by
// internal/services/nearrpc, faked in tests.
type Caller interface {
	// Call issues a call_function query at final finality and returns
	// the raw JSON bytes of the view result.
	Call(ctx context.Context, contractID, method string, args any) ([]byte, error)

	// CallAtBlock issues a call_function query pinned to a specific
	// block height.
	CallAtBlock(ctx context.Context, contractID, method string, args any, blockHeight uint64) ([]byte, error)

	// ViewAccount returns native account state, ErrAccountNotFound if
	// the account is absent.
	ViewAccount(ctx context.Context, accountID string) (*AccountView, error)
}

// AccountView is the native account state returned by a view_account
// query. Amount is yocto-NEAR as a decimal string.
type AccountView struct {
	Amount       string `json:"amount"`
	Locked       string `json:"locked"`
	StorageUsage uint64 `json:"storage_usage"`
}

// View calls a contract view method and decodes the JSON result.
func View[T any](ctx context.Context, c Caller, contractID, method string, args any) (T, error) {
	var out T

	b, err := c.Call(ctx, contractID, method, args)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		return out, err
	}

	return out, nil
}

// Balance carries a monetary amount in both encodings: Raw is the
// authoritative yocto-NEAR integer string, Nears is presentation only.
type Balance struct {
	Raw   string `json:"raw"`
	Nears string `json:"nears"`
}

// NewBalance builds the dual encoding from a raw yocto-NEAR string.
// Unparseable input degrades to zero rather than failing a response.
func NewBalance(raw string) Balance {
	if raw == "" {
		raw = "0"
	}

	nears, err := common.YoctoToNear(raw)
	if err != nil {
		return Balance{Raw: "0", Nears: "0.000000"}
	}

	return Balance{Raw: raw, Nears: nears}
}

type Snapshot struct {
	BlockHeight uint64 `json:"block_height"`
	Epoch       uint64 `json:"epoch,omitempty"`
	Length      uint64 `json:"length,omitempty"`
	Root        string `json:"root,omitempty"`
}

type SnapshotAndState struct {
	Snapshot    Snapshot `json:"snapshot"`
	TotalVenear string   `json:"total_venear_balance,omitempty"`
	TimestampNs string   `json:"timestamp_ns,omitempty"`
}

// Proposal as stored by the voting contract. Status values beyond the
// known set are passed through opaquely.
type Proposal struct {
	ID               uint64            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Link             string            `json:"link,omitempty"`
	Deadline         string            `json:"deadline,omitempty"`
	Status           string            `json:"status"`
	ProposerID       string            `json:"proposer_id,omitempty"`
	VotingOptions    []string          `json:"voting_options,omitempty"`
	Votes            []VoteTotal       `json:"votes,omitempty"`
	TotalVotingPower string            `json:"total_voting_power,omitempty"`
	SnapshotAndState *SnapshotAndState `json:"snapshot_and_state,omitempty"`
	CreationTimeNs   string            `json:"creation_time_ns,omitempty"`
	VotingStartNs    string            `json:"voting_start_time_ns,omitempty"`
	VotingDurationNs string            `json:"voting_duration_ns,omitempty"`
}

// VoteTotal is the running tally for one voting option.
type VoteTotal struct {
	TotalVenear string `json:"total_venear"`
	TotalVotes  uint64 `json:"total_votes"`
}

// Proposal lifecycle states this system interprets. Anything else is
// opaque and rejected for mutation.
const (
	ProposalStatusCreated  = "Created"
	ProposalStatusApproved = "Approved"
	ProposalStatusActive   = "active"
	ProposalStatusVoting   = "voting"
)

// VotingConfig is the voting contract's config view, used for
// permission checks.
type VotingConfig struct {
	OwnerAccountID string   `json:"owner_account_id"`
	ReviewerIDs    []string `json:"reviewer_ids"`
	Guardians      []string `json:"guardians"`
	VenearAccount  string   `json:"venear_account_id,omitempty"`
}

// Permission roles, in priority order for labeling.
const (
	RoleOwner    = "owner"
	RoleGuardian = "guardian"
	RoleReviewer = "reviewer"
	RoleNone     = "none"
)

type ApprovalPermission struct {
	AccountID     string `json:"accountId"`
	HasPermission bool   `json:"hasPermission"`
	Role          string `json:"role"`
}

// VenearAccountInfo is the veNEAR contract's per-account record.
type VenearAccountInfo struct {
	AccountID    string          `json:"account_id"`
	Balance      json.RawMessage `json:"balance,omitempty"`
	TotalBalance string          `json:"total_balance,omitempty"`
	Delegation   *struct {
		AccountID string `json:"account_id"`
	} `json:"delegation,omitempty"`
	DelegatedBalance string `json:"delegated_balance,omitempty"`
}

// Delegator is one entry of a delegate's registered delegators.
type Delegator struct {
	AccountID      string `json:"account_id"`
	DelegatedPower string `json:"delegated_power"`
}

// DelegationState summarizes both directions of delegation for an
// account. Soft-defaults to the zero value on RPC failure.
type DelegationState struct {
	IsDelegator         bool    `json:"isDelegator"`
	IsDelegate          bool    `json:"isDelegate"`
	DelegatedTo         string  `json:"delegatedTo,omitempty"`
	DelegatorsCount     int     `json:"delegatorsCount"`
	TotalDelegatedPower Balance `json:"totalDelegatedPower"`
}

// StorageBalanceBounds is the veNEAR contract's registration cost view.
type StorageBalanceBounds struct {
	Min string `json:"min"`
	Max string `json:"max,omitempty"`
}

// LockupInfo is the per-account lockup snapshot. All balances are
// dual-encoded; Raw drives every comparison.
type LockupInfo struct {
	LockupID              string  `json:"lockupId,omitempty"`
	IsDeployed            bool    `json:"isLockupDeployed"`
	LockedAmount          Balance `json:"lockedAmount"`
	LiquidOwnersBalance   Balance `json:"liquidOwnersBalance"`
	LiquidAmount          Balance `json:"liquidAmount"`
	WithdrawableAmount    Balance `json:"withdrawableAmount"`
	PendingAmount         Balance `json:"pendingAmount"`
	UnlockTimestampNs     string  `json:"unlockTimestampNs,omitempty"`
	UntilUnlockMs         int64   `json:"untilUnlockMs"`
	StakingPool           string  `json:"stakingPool,omitempty"`
	KnownDepositedBalance Balance `json:"knownDepositedBalance"`
	RegistrationCost      Balance `json:"registrationCost"`
	LockupDeploymentCost  Balance `json:"lockupDeploymentCost"`
}

// AccountState is the combined governance + lockup + staking snapshot.
type AccountState struct {
	AccountID     string          `json:"accountId"`
	VenearBalance Balance         `json:"venearBalance"`
	TokenBalance  Balance         `json:"venearTokenBalance"`
	NativeBalance Balance         `json:"nativeBalance"`
	Delegation    DelegationState `json:"delegation"`
	Lockup        LockupInfo      `json:"lockup"`
}

// Vote payload inputs. MerkleProof and VAccount come from the proof
// query pinned at the proposal's snapshot block height.
type Vote struct {
	ProposalID          uint64          `json:"proposalId"`
	Vote                int             `json:"vote"`
	AccountID           string          `json:"accountId"`
	SnapshotBlockHeight uint64          `json:"snapshotBlockHeight"`
	MerkleProof         json.RawMessage `json:"merkleProof"`
	VAccount            json.RawMessage `json:"vAccount"`
}
