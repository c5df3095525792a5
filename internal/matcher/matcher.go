// Package matcher resolves extracted business names against the client
// registry. Exact normalized hits win outright; otherwise token-sort fuzzy
// scoring applies, with an ambiguity band that refuses to guess between
// close candidates.
package matcher

import (
	"regexp"
	"sort"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/seacliff-digital/reportpilot/internal/models"
)

var (
	punctRe      = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	corpSuffixes = map[string]struct{}{
		"inc":          {},
		"llc":          {},
		"ltd":          {},
		"co":           {},
		"corp":         {},
		"corporation":  {},
		"company":      {},
		"incorporated": {},
	}
)

// Normalize casefolds a business name, strips punctuation and trailing
// corporate suffixes, and collapses whitespace. "ABC Corp." and "abc corp"
// normalize identically.
func Normalize(name string) string {
	lowered := strings.ToLower(name)
	lowered = punctRe.ReplaceAllString(lowered, " ")
	fields := strings.Fields(lowered)
	for len(fields) > 1 {
		if _, ok := corpSuffixes[fields[len(fields)-1]]; !ok {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// Config tunes matching strictness.
type Config struct {
	// Threshold is the minimum fuzzy score accepted as a match.
	Threshold int
	// AmbiguityMargin widens a tie: runners-up within this many points of
	// the best score make the result ambiguous instead of matched.
	AmbiguityMargin int
}

// Matcher matches names against a fixed registry snapshot. Build one per
// pipeline run; it is read-only after construction and safe for concurrent
// use.
type Matcher struct {
	cfg     Config
	clients []models.ClientRecord

	// exact maps a normalized name to the client IDs carrying it. More than
	// one ID under a key means the registry itself is ambiguous for that
	// name.
	exact map[string][]string
}

// New builds a Matcher over the given registry snapshot.
func New(cfg Config, clients []models.ClientRecord) *Matcher {
	m := &Matcher{
		cfg:     cfg,
		clients: clients,
		exact:   make(map[string][]string, len(clients)),
	}
	for _, c := range clients {
		key := Normalize(c.BusinessName)
		m.exact[key] = append(m.exact[key], c.ClientID)
	}
	return m
}

// DuplicateNames returns normalized registry names shared by more than one
// client, surfaced at startup so operators can fix the registry.
func (m *Matcher) DuplicateNames() []string {
	var dups []string
	for name, ids := range m.exact {
		if len(ids) > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

// Match resolves one extracted business name. The outcome is exactly one of
// matched, ambiguous, or not_found; a name matching duplicate registry
// entries is always ambiguous regardless of score.
func (m *Matcher) Match(name string) models.MatchResult {
	if len(m.clients) == 0 {
		return models.NotFound()
	}

	normalized := Normalize(name)
	if normalized == "" {
		return models.NotFound()
	}

	if ids, ok := m.exact[normalized]; ok {
		if len(ids) > 1 {
			candidates := make([]models.MatchCandidate, 0, len(ids))
			for _, id := range ids {
				candidates = append(candidates, models.MatchCandidate{ClientID: id, Score: 100})
			}
			return models.Ambiguous(candidates)
		}
		return models.Matched(ids[0], 100)
	}

	scored := make([]models.MatchCandidate, 0, len(m.clients))
	for _, c := range m.clients {
		score := fuzzy.TokenSortRatio(normalized, Normalize(c.BusinessName))
		if score >= m.cfg.Threshold {
			scored = append(scored, models.MatchCandidate{ClientID: c.ClientID, Score: score})
		}
	}
	if len(scored) == 0 {
		return models.NotFound()
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	best := scored[0]
	contenders := []models.MatchCandidate{best}
	for _, c := range scored[1:] {
		if best.Score-c.Score <= m.cfg.AmbiguityMargin {
			contenders = append(contenders, c)
		}
	}
	if len(contenders) > 1 {
		return models.Ambiguous(contenders)
	}
	return models.Matched(best.ClientID, best.Score)
}
