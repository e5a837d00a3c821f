package search

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/neargov/gateway/pkg/gov"
)

// Search modes.
const (
	ModeSemantic    = "semantic"
	ModeTraditional = "traditional"
	ModeHybrid      = "hybrid"
)

// Term-match weights for relevance scoring.
const (
	scoreTitle   = 10
	scoreDesc    = 5
	scoreStatus  = 3
	scoreExactID = 15
)

const queryCacheSize = 256

// Ranker is the external similarity collaborator: rank(corpus, query)
// returns indices into the corpus, best first.
type Ranker interface {
	Rank(corpus []string, query string, k int) ([]int, error)
}

var errNoRanker = errors.New("no similarity ranker configured")

// corpusIndex is the process-lifetime snapshot the ranker works over.
// Built once from whatever proposal set is present at first use and
// never invalidated: proposals created later will not appear in
// semantic results until restart. Best-effort cache, not a
// consistency guarantee.
type corpusIndex struct {
	proposals []gov.Proposal
	corpus    []string
}

// Service ranks proposals by keyword and/or semantic similarity.
type Service struct {
	ranker Ranker

	once  sync.Once
	index *corpusIndex
	cache *lru.Cache[string, []int]
}

func NewService(ranker Ranker) *Service {
	cache, _ := lru.New[string, []int](queryCacheSize)

	return &Service{
		ranker: ranker,
		cache:  cache,
	}
}

func corpusEntry(p *gov.Proposal) string {
	return fmt.Sprintf("%d %s %s %s", p.ID, p.Title, p.Description, p.Status)
}

func (s *Service) ensureIndex(proposals []gov.Proposal) *corpusIndex {
	s.once.Do(func() {
		corpus := make([]string, len(proposals))
		snapshot := make([]gov.Proposal, len(proposals))
		for i := range proposals {
			snapshot[i] = proposals[i]
			corpus[i] = corpusEntry(&proposals[i])
		}

		s.index = &corpusIndex{proposals: snapshot, corpus: corpus}
		log.Default().Printf("search: built similarity index over %d proposals", len(proposals))
	})

	return s.index
}

// Score computes the traditional relevance score for one proposal:
// 10 per term matched in the title, 5 in the description, 3 in the
// status, 15 for an exact id match.
func Score(p *gov.Proposal, query string) int {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}

	title := strings.ToLower(p.Title)
	desc := strings.ToLower(p.Description)
	status := strings.ToLower(p.Status)
	id := strconv.FormatUint(p.ID, 10)

	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += scoreTitle
		}
		if strings.Contains(desc, term) {
			score += scoreDesc
		}
		if strings.Contains(status, term) {
			score += scoreStatus
		}
		if term == id {
			score += scoreExactID
		}
	}

	return score
}

// Traditional returns proposals matching any query term, highest
// score first.
func (s *Service) Traditional(proposals []gov.Proposal, query string, limit int) []gov.Proposal {
	type scored struct {
		p     gov.Proposal
		score int
	}

	matches := make([]scored, 0, len(proposals))
	for i := range proposals {
		sc := Score(&proposals[i], query)
		if sc > 0 {
			matches = append(matches, scored{p: proposals[i], score: sc})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]gov.Proposal, len(matches))
	for i, m := range matches {
		out[i] = m.p
	}

	return out
}

func (s *Service) semantic(proposals []gov.Proposal, query string, limit int) ([]gov.Proposal, error) {
	if s.ranker == nil {
		return nil, errNoRanker
	}

	idx := s.ensureIndex(proposals)

	cacheKey := fmt.Sprintf("%d:%s", limit, query)

	ranked, ok := s.cache.Get(cacheKey)
	if !ok {
		var err error
		ranked, err = s.ranker.Rank(idx.corpus, query, limit)
		if err != nil {
			return nil, err
		}
		s.cache.Add(cacheKey, ranked)
	}

	out := make([]gov.Proposal, 0, len(ranked))
	for _, i := range ranked {
		if i < 0 || i >= len(idx.proposals) {
			continue
		}
		out = append(out, idx.proposals[i])
	}

	return out, nil
}

// Search runs the requested mode over the proposal set. Semantic and
// hybrid degrade to traditional on any ranker failure.
func (s *Service) Search(proposals []gov.Proposal, query, mode string, limit int) ([]gov.Proposal, string) {
	if limit <= 0 {
		limit = 10
	}

	switch mode {
	case ModeSemantic:
		out, err := s.semantic(proposals, query, limit)
		if err != nil {
			log.Default().Printf("search: semantic ranking failed, falling back to traditional: %v", err)
			return s.Traditional(proposals, query, limit), ModeTraditional
		}
		return out, ModeSemantic

	case ModeHybrid:
		out, err := s.hybrid(proposals, query, limit)
		if err != nil {
			log.Default().Printf("search: hybrid ranking failed, falling back to traditional: %v", err)
			return s.Traditional(proposals, query, limit), ModeTraditional
		}
		return out, ModeHybrid

	default:
		return s.Traditional(proposals, query, limit), ModeTraditional
	}
}

// hybrid takes ceil(0.7*limit) semantic results first, then fills the
// remaining slots with traditional matches not already present,
// preserving semantic-first ordering.
func (s *Service) hybrid(proposals []gov.Proposal, query string, limit int) ([]gov.Proposal, error) {
	semSlots := (7*limit + 9) / 10 // ceil(0.7 * limit)

	semantic, err := s.semantic(proposals, query, semSlots)
	if err != nil {
		return nil, err
	}

	if len(semantic) > semSlots {
		semantic = semantic[:semSlots]
	}

	seen := make(map[uint64]bool, limit)
	out := make([]gov.Proposal, 0, limit)

	for _, p := range semantic {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}

	for _, p := range s.Traditional(proposals, query, limit) {
		if len(out) >= limit {
			break
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}

	return out, nil
}
