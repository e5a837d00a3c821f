package search

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	com "github.com/neargov/gateway/internal/common"
	"github.com/neargov/gateway/internal/config"
	"github.com/neargov/gateway/internal/proposals"
	"github.com/neargov/gateway/pkg/gov"
)

const defaultSearchLimit = 10

type Handlers struct {
	svc     *Service
	gateway *proposals.Gateway
}

func NewHandlers(svc *Service, gateway *proposals.Gateway) *Handlers {
	return &Handlers{
		svc:     svc,
		gateway: gateway,
	}
}

type searchResponse struct {
	Proposals    []gov.Proposal `json:"proposals"`
	TotalCount   int            `json:"totalCount"`
	MatchedCount int            `json:"matchedCount"`
	Query        string         `json:"query,omitempty"`
	SearchType   string         `json:"searchType"`
	Sort         string         `json:"sort"`
}

// Search filters and ranks the proposal corpus. With a query, results
// are ranked in the requested mode; without one, they are sorted by
// the sort key over the (optionally status-filtered) corpus.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	status := strings.TrimSpace(q.Get("status"))
	sortKey := q.Get("sort")
	mode := q.Get("searchType")
	if mode == "" {
		mode = ModeHybrid
	}

	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultSearchLimit
	}

	all, err := h.gateway.AllProposals(r.Context())
	if err != nil {
		if errors.Is(err, config.ErrMissingContract) {
			com.BodyError(w, http.StatusInternalServerError, err.Error())
			return
		}

		com.BodyError(w, http.StatusBadGateway, err.Error())
		return
	}

	corpus := all
	if status != "" {
		corpus = corpus[:0:0]
		for _, p := range all {
			if strings.EqualFold(p.Status, status) {
				corpus = append(corpus, p)
			}
		}
	}

	var (
		results  []gov.Proposal
		usedMode = "none"
	)

	if query != "" {
		results, usedMode = h.svc.Search(corpus, query, mode, limit)
	} else {
		results = make([]gov.Proposal, len(corpus))
		copy(results, corpus)

		// newest first unless asked otherwise
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].ID > results[j].ID
		})

		if len(results) > limit {
			results = results[:limit]
		}
	}

	if sortKey == "" {
		sortKey = "newest"
		if query != "" {
			sortKey = "relevance"
		}
	}

	err = com.Body(w, searchResponse{
		Proposals:    results,
		TotalCount:   len(all),
		MatchedCount: len(results),
		Query:        query,
		SearchType:   usedMode,
		Sort:         sortKey,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}
