package proposals

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	com "github.com/neargov/gateway/internal/common"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/pkg/gov"
)

const (
	defaultRecentCount = 5
	maxRecentCount     = 50
)

type Service struct {
	gateway *Gateway
	cfg     *config.Config
}

func NewService(gateway *Gateway, cfg *config.Config) *Service {
	return &Service{
		gateway: gateway,
		cfg:     cfg,
	}
}

// writeErr maps the error taxonomy onto the response contract: 400
// input validation, 404 missing resource, 500 configuration, 200 with
// an {error} body for domain preconditions, 502 for upstream faults.
func writeErr(w http.ResponseWriter, err error) {
	var perr *PreconditionError

	switch {
	case errors.Is(err, ErrInvalidProposalID):
		com.BodyError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProposalNotFound), errors.Is(err, gov.ErrAccountNotFound):
		com.BodyError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, config.ErrMissingContract):
		com.BodyError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &perr):
		com.BodyError(w, http.StatusOK, perr.Reason)
	default:
		com.BodyError(w, http.StatusBadGateway, err.Error())
	}
}

type proposalResponse struct {
	Proposal *gov.Proposal `json:"proposal"`
}

// GetProposal returns a single proposal by id.
func (s *Service) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := ParseProposalID(r.URL.Query().Get("proposalId"))
	if err != nil {
		writeErr(w, err)
		return
	}

	p, err := s.gateway.FetchProposal(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := com.Body(w, proposalResponse{Proposal: p}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type recentResponse struct {
	Proposals  []gov.Proposal `json:"proposals"`
	TotalCount uint64         `json:"totalCount"`
	FromIndex  uint64         `json:"fromIndex"`
	Limit      int            `json:"limit"`
}

func parseCount(raw string) int {
	count, err := strconv.Atoi(raw)
	if err != nil || count < 1 {
		return defaultRecentCount
	}

	if count > maxRecentCount {
		return maxRecentCount
	}

	return count
}

func (s *Service) recent(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	count := parseCount(r.URL.Query().Get("count"))

	props, total, fromIndex, err := s.gateway.RecentProposals(r.Context(), count, activeOnly)
	if err != nil {
		writeErr(w, err)
		return
	}

	err = com.Body(w, recentResponse{
		Proposals:  props,
		TotalCount: total,
		FromIndex:  fromIndex,
		Limit:      count,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// GetRecent returns the newest proposals, most recent first.
func (s *Service) GetRecent(w http.ResponseWriter, r *http.Request) {
	s.recent(w, r, false)
}

// GetRecentActive returns the newest proposals open for voting.
func (s *Service) GetRecentActive(w http.ResponseWriter, r *http.Request) {
	s.recent(w, r, true)
}

type votesResponse struct {
	ProposalID       uint64        `json:"proposalId"`
	Status           string        `json:"status"`
	TotalVotingPower string        `json:"totalVotingPower,omitempty"`
	TotalVotes       uint64        `json:"totalVotes"`
	Votes            []OptionStats `json:"votes"`
}

// GetVotes returns the current tally with decision split percentages.
func (s *Service) GetVotes(w http.ResponseWriter, r *http.Request) {
	id, err := ParseProposalID(r.URL.Query().Get("proposalId"))
	if err != nil {
		writeErr(w, err)
		return
	}

	p, err := s.gateway.FetchProposal(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	stats := VoteStats(p)

	var totalVotes uint64
	for _, v := range p.Votes {
		totalVotes += v.TotalVotes
	}

	err = com.Body(w, votesResponse{
		ProposalID:       p.ID,
		Status:           p.Status,
		TotalVotingPower: p.TotalVotingPower,
		TotalVotes:       totalVotes,
		Votes:            stats,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type payloadResponse struct {
	TransactionPayload gov.TransactionPayload `json:"transactionPayload"`
}

// CreateProposal assembles the create_proposal payload. The proposal
// itself is created on chain once a wallet signs and broadcasts.
func (s *Service) CreateProposal(w http.ResponseWriter, r *http.Request) {
	voting, err := s.cfg.RequireVoting()
	if err != nil {
		writeErr(w, err)
		return
	}

	q := r.URL.Query()

	title := strings.TrimSpace(q.Get("title"))
	description := strings.TrimSpace(q.Get("description"))
	if title == "" || description == "" {
		com.BodyError(w, http.StatusBadRequest, "title and description are required")
		return
	}

	options := []string{"Yes", "No"}
	if raw := q.Get("votingOptions"); raw != "" {
		options = options[:0]
		for _, opt := range strings.Split(raw, ",") {
			if opt = strings.TrimSpace(opt); opt != "" {
				options = append(options, opt)
			}
		}
	}

	if len(options) < 2 {
		com.BodyError(w, http.StatusBadRequest, "at least two voting options are required")
		return
	}

	payload := gov.CreateProposalPayload(voting, gov.ProposalMetadata{
		Title:         title,
		Description:   description,
		Link:          strings.TrimSpace(q.Get("link")),
		VotingOptions: options,
	})

	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// ApproveProposal validates the caller's role and the proposal state,
// then assembles the approve_proposal payload. The role check is
// advisory: the contract re-checks on chain.
func (s *Service) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	voting, err := s.cfg.RequireVoting()
	if err != nil {
		writeErr(w, err)
		return
	}

	id, err := ParseProposalID(r.URL.Query().Get("proposalId"))
	if err != nil {
		writeErr(w, err)
		return
	}

	accountID := r.URL.Query().Get("accountId")
	if !com.IsValidAccountID(accountID) {
		com.BodyError(w, http.StatusBadRequest, "accountId is missing or not a valid NEAR account id")
		return
	}

	perm := s.gateway.CheckApprovalPermission(r.Context(), accountID)
	if !perm.HasPermission {
		com.BodyError(w, http.StatusOK, accountID+" has no approval permission on the voting contract")
		return
	}

	if _, err := s.gateway.ValidateForApproval(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}

	payload := gov.ApproveProposalPayload(voting, id)

	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// Vote validates the proposal's voting window, fetches the voter's
// merkle proof at the proposal's snapshot block and assembles the
// vote payload.
func (s *Service) Vote(w http.ResponseWriter, r *http.Request) {
	voting, err := s.cfg.RequireVoting()
	if err != nil {
		writeErr(w, err)
		return
	}

	id, err := ParseProposalID(r.URL.Query().Get("proposalId"))
	if err != nil {
		writeErr(w, err)
		return
	}

	accountID := r.URL.Query().Get("accountId")
	if !com.IsValidAccountID(accountID) {
		com.BodyError(w, http.StatusBadRequest, "accountId is missing or not a valid NEAR account id")
		return
	}

	voteLabel := r.URL.Query().Get("vote")
	if voteLabel == "" {
		com.BodyError(w, http.StatusBadRequest, "vote is required")
		return
	}

	p, err := s.gateway.FetchProposal(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}

	if err := s.gateway.ValidateForVoting(p); err != nil {
		writeErr(w, err)
		return
	}

	voteIndex, err := VoteIndex(p, voteLabel)
	if err != nil {
		writeErr(w, err)
		return
	}

	proof, err := s.gateway.GetProof(r.Context(), accountID, p)
	if err != nil {
		writeErr(w, err)
		return
	}

	payload := gov.VotePayload(voting, gov.Vote{
		ProposalID:          p.ID,
		Vote:                voteIndex,
		AccountID:           accountID,
		SnapshotBlockHeight: p.SnapshotAndState.Snapshot.BlockHeight,
		MerkleProof:         proof.MerkleProof,
		VAccount:            proof.VAccount,
	})

	if err := com.Body(w, payloadResponse{TransactionPayload: payload}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
