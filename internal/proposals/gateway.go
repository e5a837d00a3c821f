package proposals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/pkg/gov"
)

var (
	ErrProposalNotFound  = errors.New("proposal not found")
	ErrInvalidProposalID = errors.New("proposalId must be a non-negative integer")
)

// PreconditionError is a user-correctable domain condition, reported
// as an {error} body, never as a server fault.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// Gateway reads and validates proposal state on the voting contract.
type Gateway struct {
	caller gov.Caller
	cfg    *config.Config

	now func() time.Time
}

func NewGateway(caller gov.Caller, cfg *config.Config) *Gateway {
	return &Gateway{
		caller: caller,
		cfg:    cfg,
		now:    time.Now,
	}
}

// ParseProposalID validates the user-supplied id string.
func ParseProposalID(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidProposalID
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidProposalID
	}

	return id, nil
}

func (g *Gateway) FetchProposal(ctx context.Context, id uint64) (*gov.Proposal, error) {
	voting, err := g.cfg.RequireVoting()
	if err != nil {
		return nil, err
	}

	p, err := gov.View[*gov.Proposal](ctx, g.caller, voting, "get_proposal", map[string]any{
		"proposal_id": id,
	})
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return nil, fmt.Errorf("proposal %d: %w", id, ErrProposalNotFound)
		}

		return nil, err
	}

	if p == nil {
		return nil, fmt.Errorf("proposal %d: %w", id, ErrProposalNotFound)
	}

	return p, nil
}

// RecentProposals returns the newest proposals, most recent first. The
// contract stores proposals in id order, so the window [total-count,
// total) is read and reversed.
func (g *Gateway) RecentProposals(ctx context.Context, count int, activeOnly bool) ([]gov.Proposal, uint64, uint64, error) {
	voting, err := g.cfg.RequireVoting()
	if err != nil {
		return nil, 0, 0, err
	}

	total, err := gov.View[uint64](ctx, g.caller, voting, "get_num_proposals", nil)
	if err != nil {
		return nil, 0, 0, err
	}

	fromIndex := uint64(0)
	if total > uint64(count) {
		fromIndex = total - uint64(count)
	}

	window, err := gov.View[[]gov.Proposal](ctx, g.caller, voting, "get_proposals", map[string]any{
		"from_index": fromIndex,
		"limit":      count,
	})
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return []gov.Proposal{}, total, fromIndex, nil
		}

		return nil, 0, 0, err
	}

	reversed := make([]gov.Proposal, 0, len(window))
	for i := len(window) - 1; i >= 0; i-- {
		p := window[i]
		if activeOnly && !isVotableStatus(p.Status) {
			continue
		}
		reversed = append(reversed, p)
	}

	return reversed, total, fromIndex, nil
}

// AllProposals reads the full proposal corpus, oldest first. Used by
// search, which needs everything to rank over.
func (g *Gateway) AllProposals(ctx context.Context) ([]gov.Proposal, error) {
	voting, err := g.cfg.RequireVoting()
	if err != nil {
		return nil, err
	}

	total, err := gov.View[uint64](ctx, g.caller, voting, "get_num_proposals", nil)
	if err != nil {
		return nil, err
	}

	if total == 0 {
		return []gov.Proposal{}, nil
	}

	all, err := gov.View[[]gov.Proposal](ctx, g.caller, voting, "get_proposals", map[string]any{
		"from_index": 0,
		"limit":      total,
	})
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return []gov.Proposal{}, nil
		}

		return nil, err
	}

	return all, nil
}

func isVotableStatus(status string) bool {
	s := strings.ToLower(status)
	return s == gov.ProposalStatusActive || s == gov.ProposalStatusVoting
}

// ValidateForApproval reports whether the proposal is still in the
// Created state and thus approvable.
func (g *Gateway) ValidateForApproval(ctx context.Context, id uint64) (*gov.Proposal, error) {
	p, err := g.FetchProposal(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Status != gov.ProposalStatusCreated {
		return p, &PreconditionError{
			Reason: fmt.Sprintf("proposal %d cannot be approved: status is %q, approval requires %q", id, p.Status, gov.ProposalStatusCreated),
		}
	}

	return p, nil
}

// ValidateForVoting checks the proposal lifecycle state and its
// human-readable deadline. The deadline is distinct from the snapshot
// mechanism: it bounds when votes are accepted, the snapshot pins
// whose balances count.
func (g *Gateway) ValidateForVoting(p *gov.Proposal) error {
	if !isVotableStatus(p.Status) {
		return &PreconditionError{
			Reason: fmt.Sprintf("proposal %d is not open for voting: status is %q", p.ID, p.Status),
		}
	}

	if p.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, p.Deadline)
		if err != nil {
			// status alone decides then, but leave a trace
			log.Default().Printf("proposals: proposal %d has a malformed deadline %q: %v", p.ID, p.Deadline, err)
		} else if g.now().After(deadline) {
			return &PreconditionError{
				Reason: fmt.Sprintf("voting on proposal %d closed at %s", p.ID, p.Deadline),
			}
		}
	}

	return nil
}

// CheckApprovalPermission resolves the account's role on the voting
// contract. Any RPC failure fails closed: no permission, role none.
func (g *Gateway) CheckApprovalPermission(ctx context.Context, accountID string) gov.ApprovalPermission {
	perm := gov.ApprovalPermission{
		AccountID: accountID,
		Role:      gov.RoleNone,
	}

	voting, err := g.cfg.RequireVoting()
	if err != nil {
		return perm
	}

	cfg, err := gov.View[gov.VotingConfig](ctx, g.caller, voting, "get_config", nil)
	if err != nil {
		return perm
	}

	isOwner := cfg.OwnerAccountID == accountID
	isGuardian := containsAccount(cfg.Guardians, accountID)
	isReviewer := containsAccount(cfg.ReviewerIDs, accountID)

	perm.HasPermission = isOwner || isGuardian || isReviewer

	switch {
	case isOwner:
		perm.Role = gov.RoleOwner
	case isGuardian:
		perm.Role = gov.RoleGuardian
	case isReviewer:
		perm.Role = gov.RoleReviewer
	}

	return perm
}

func containsAccount(ids []string, accountID string) bool {
	for _, id := range ids {
		if id == accountID {
			return true
		}
	}

	return false
}

// Proof is the merkle proof pair needed to build a vote payload.
type Proof struct {
	MerkleProof json.RawMessage `json:"merkleProof"`
	VAccount    json.RawMessage `json:"vAccount"`
}

// GetProof fetches the voter's balance proof pinned at the proposal's
// snapshot block height. Voting eligibility is determined by balances
// as of approval time; querying any other height would be rejected by
// the contract.
func (g *Gateway) GetProof(ctx context.Context, accountID string, p *gov.Proposal) (*Proof, error) {
	venear, err := g.cfg.RequireVenear()
	if err != nil {
		return nil, err
	}

	if p.SnapshotAndState == nil || p.SnapshotAndState.Snapshot.BlockHeight == 0 {
		return nil, &PreconditionError{
			Reason: fmt.Sprintf("proposal %d has no voting snapshot yet", p.ID),
		}
	}

	height := p.SnapshotAndState.Snapshot.BlockHeight

	b, err := g.caller.CallAtBlock(ctx, venear, "get_proof", map[string]any{
		"account_id": accountID,
	}, height)
	if err != nil {
		if errors.Is(err, gov.ErrEmptyResult) {
			return nil, &PreconditionError{
				Reason: fmt.Sprintf("%s holds no veNEAR balance at snapshot block %d", accountID, height),
			}
		}

		return nil, err
	}

	// the contract returns a (merkle_proof, v_account) pair
	var pair [2]json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return nil, fmt.Errorf("decoding proof for %s: %w", accountID, err)
	}

	return &Proof{MerkleProof: pair[0], VAccount: pair[1]}, nil
}

// VoteIndex maps a vote label to its option index on the proposal.
// Falls back to the conventional Yes/No/Abstain ordering when the
// proposal carries no explicit options.
func VoteIndex(p *gov.Proposal, vote string) (int, error) {
	options := p.VotingOptions
	if len(options) == 0 {
		options = []string{"Yes", "No", "Abstain"}
	}

	for i, opt := range options {
		if strings.EqualFold(opt, vote) {
			return i, nil
		}
	}

	return 0, &PreconditionError{
		Reason: fmt.Sprintf("vote %q is not an option on proposal %d (options: %s)", vote, p.ID, strings.Join(options, ", ")),
	}
}

// OptionStats is the per-option share of the current tally.
type OptionStats struct {
	Option      string  `json:"option"`
	TotalVenear string  `json:"totalVenear"`
	TotalVotes  uint64  `json:"totalVotes"`
	Percent     float64 `json:"percent"`
}

// VoteStats derives the decision split for a proposal. Percentages are
// display-only statistics and may use floating point.
func VoteStats(p *gov.Proposal) []OptionStats {
	var totalVotes uint64
	for _, v := range p.Votes {
		totalVotes += v.TotalVotes
	}

	stats := make([]OptionStats, 0, len(p.Votes))
	for i, v := range p.Votes {
		option := fmt.Sprintf("option %d", i)
		if i < len(p.VotingOptions) {
			option = p.VotingOptions[i]
		}

		percent := 0.0
		if totalVotes > 0 {
			percent = float64(v.TotalVotes) / float64(totalVotes) * 100
		}

		stats = append(stats, OptionStats{
			Option:      option,
			TotalVenear: v.TotalVenear,
			TotalVotes:  v.TotalVotes,
			Percent:     percent,
		})
	}

	return stats
}
