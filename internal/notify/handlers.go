package notify

import (
	"encoding/json"
	"errors"
	"net/http"

	com "github.com/neargov/gateway/internal/common"
	"github.com/neargov/gateway/internal/proposals"
	"github.com/neargov/gateway/pkg/gov"
)

type Service struct {
	gateway *proposals.Gateway
}

func NewService(gateway *proposals.Gateway) *Service {
	return &Service{
		gateway: gateway,
	}
}

type notifyRequest struct {
	ProposalID string `json:"proposalId"`
}

type notifyResponse struct {
	Message  string        `json:"message"`
	Proposal *gov.Proposal `json:"proposal"`
}

func (s *Service) handle(w http.ResponseWriter, r *http.Request, format func(*gov.Proposal) string) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		com.BodyError(w, http.StatusBadRequest, "request body must be JSON with a proposalId field")
		return
	}
	defer r.Body.Close()

	id, err := proposals.ParseProposalID(req.ProposalID)
	if err != nil {
		com.BodyError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.gateway.FetchProposal(r.Context(), id)
	if err != nil {
		if errors.Is(err, proposals.ErrProposalNotFound) {
			com.BodyError(w, http.StatusNotFound, err.Error())
			return
		}

		com.BodyError(w, http.StatusBadGateway, err.Error())
		return
	}

	err = com.Body(w, notifyResponse{
		Message:  format(p),
		Proposal: p,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// HandleNewProposal formats the announcement text for a new proposal.
// Dispatching the message is the caller's job.
func (s *Service) HandleNewProposal(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, FormatNewProposal)
}

// HandleProposalApproval formats the announcement for a proposal that
// entered voting.
func (s *Service) HandleProposalApproval(w http.ResponseWriter, r *http.Request) {
	s.handle(w, r, FormatProposalApproval)
}
