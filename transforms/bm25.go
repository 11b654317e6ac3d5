package transforms

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/strawgate/mcp-compose/components"
)

// NewBM25Search builds a search transform ranking tools with BM25 over
// their name, title, description and tags.
func NewBM25Search(opts ...SearchOption) *Search {
	return NewSearch(&bm25Searcher{}, opts...)
}

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var tokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

func tokenize(s string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(strings.ToLower(s), -1) {
		if len(tok) > 1 {
			out = append(out, tok)
		}
	}
	return out
}

type bm25Doc struct {
	tool   *components.Tool
	freqs  map[string]int
	length int
}

type bm25Index struct {
	docs      []bm25Doc
	docFreq   map[string]int
	avgDocLen float64
	hash      string
}

// catalogHash fingerprints a catalog so the index is rebuilt only when the
// tool set actually changes.
func catalogHash(catalog []*components.Tool) string {
	keys := make([]string, 0, len(catalog))
	for _, t := range catalog {
		keys = append(keys, t.Key())
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "\x00")))
	return hex.EncodeToString(sum[:])
}

func buildIndex(catalog []*components.Tool) *bm25Index {
	idx := &bm25Index{docFreq: make(map[string]int), hash: catalogHash(catalog)}
	total := 0
	for _, t := range catalog {
		text := strings.Join(append([]string{t.Name, t.Title, t.Description}, t.Tags...), " ")
		tokens := tokenize(text)
		doc := bm25Doc{tool: t, freqs: make(map[string]int, len(tokens)), length: len(tokens)}
		for _, tok := range tokens {
			doc.freqs[tok]++
		}
		for tok := range doc.freqs {
			idx.docFreq[tok]++
		}
		total += doc.length
		idx.docs = append(idx.docs, doc)
	}
	if len(idx.docs) > 0 {
		idx.avgDocLen = float64(total) / float64(len(idx.docs))
	}
	return idx
}

func (idx *bm25Index) score(doc bm25Doc, queryTokens []string) float64 {
	n := float64(len(idx.docs))
	var score float64
	for _, tok := range queryTokens {
		tf := float64(doc.freqs[tok])
		if tf == 0 {
			continue
		}
		df := float64(idx.docFreq[tok])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := 1 - bm25B + bm25B*float64(doc.length)/idx.avgDocLen
		score += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
	}
	return score
}

// bm25Searcher keeps a lazily rebuilt index keyed on the catalog hash.
type bm25Searcher struct {
	mu  sync.Mutex
	idx *bm25Index
}

func (s *bm25Searcher) index(catalog []*components.Tool) *bm25Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx == nil || s.idx.hash != catalogHash(catalog) {
		s.idx = buildIndex(catalog)
	}
	return s.idx
}

func (s *bm25Searcher) SearchTools(_ context.Context, query string, catalog []*components.Tool, limit int) ([]*components.Tool, error) {
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}
	idx := s.index(catalog)

	type scored struct {
		tool  *components.Tool
		score float64
	}
	var ranked []scored
	for _, doc := range idx.docs {
		if sc := idx.score(doc, queryTokens); sc > 0 {
			ranked = append(ranked, scored{doc.tool, sc})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]*components.Tool, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.tool)
	}
	return out, nil
}
