package matcher

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/harun/pasokh/pkg/corpus"
)

// ErrInvalidOptions is returned by New for out-of-range options
var ErrInvalidOptions = errors.New("invalid matcher options")

// Options tunes scoring
type Options struct {
	// ScanThreshold bounds candidates inside the bitap search; worse alignments are not considered matches.
	ScanThreshold float64
	// AcceptThreshold is the exclusive upper bound for a reported match.
	AcceptThreshold float64
	// Distance scales the positional penalty; a match Distance runes away from Location costs a full point.
	Distance int
	// Location is where in the searched text a match is expected.
	Location int
	// KeywordInQuery also compares each keyword against whole words of the query, so
	// "what are your hours" finds "hours" but "which" does not find "hi".
	KeywordInQuery bool
}

// DefaultOptions returns the reference tuning
func DefaultOptions() Options {
	return Options{
		ScanThreshold:   0.4,
		AcceptThreshold: 0.5,
		Distance:        100,
		Location:        0,
		KeywordInQuery:  true,
	}
}

// Validate checks option ranges
func (o Options) Validate() error {
	if o.ScanThreshold < 0 || o.ScanThreshold > 1 {
		return fmt.Errorf("%w: scan threshold %.3f outside [0,1]", ErrInvalidOptions, o.ScanThreshold)
	}
	if o.AcceptThreshold <= 0 || o.AcceptThreshold > 1 {
		return fmt.Errorf("%w: accept threshold %.3f outside (0,1]", ErrInvalidOptions, o.AcceptThreshold)
	}
	if o.Distance < 0 {
		return fmt.Errorf("%w: distance must not be negative", ErrInvalidOptions)
	}
	if o.Location < 0 {
		return fmt.Errorf("%w: location must not be negative", ErrInvalidOptions)
	}
	return nil
}

// Match is a scored corpus entry
type Match struct {
	Index   int
	Answer  string
	Keyword string
	Score   float64
}

type indexedKeyword struct {
	text    string
	runes   []rune
	words   int
	pattern pattern
}

type indexedEntry struct {
	answer   string
	keywords []indexedKeyword
}

// Matcher scores queries against a fixed corpus. It is safe for concurrent use.
type Matcher struct {
	opts    Options
	entries []indexedEntry
}

// New indexes the corpus
func New(c *corpus.Corpus, opts Options) (*Matcher, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: corpus is required", ErrInvalidOptions)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	m := &Matcher{opts: opts, entries: make([]indexedEntry, c.Len())}
	for i, e := range c.Entries() {
		ie := indexedEntry{answer: e.Answer, keywords: make([]indexedKeyword, len(e.Keywords))}
		for j, k := range e.Keywords {
			runes := []rune(normalize(k))
			ie.keywords[j] = indexedKeyword{
				text:    k,
				runes:   runes,
				words:   len(tokenSpans(runes)),
				pattern: compilePattern(runes),
			}
		}
		m.entries[i] = ie
	}
	return m, nil
}

// Options returns the tuning in effect
func (m *Matcher) Options() Options {
	return m.opts
}

// Rank returns every entry that produced a candidate alignment, best first.
// Equal scores keep corpus order.
func (m *Matcher) Rank(query string) []Match {
	q := []rune(normalize(query))
	if len(q) == 0 {
		return nil
	}

	params := searchParams{
		location:  m.opts.Location,
		distance:  m.opts.Distance,
		threshold: m.opts.ScanThreshold,
	}
	queryPattern := compilePattern(q)
	spans := tokenSpans(q)

	var results []Match
	for i, e := range m.entries {
		best := searchResult{score: 1}
		bestKeyword := ""
		for _, k := range e.keywords {
			r := queryPattern.searchIn(k.runes, params)
			if m.opts.KeywordInQuery {
				if rev := k.searchWords(q, spans, params); rev.matched && (!r.matched || rev.score < r.score) {
					r = rev
				}
			}
			if r.matched && (bestKeyword == "" || r.score < best.score) {
				best = r
				bestKeyword = k.text
			}
		}
		if bestKeyword != "" {
			results = append(results, Match{Index: i, Answer: e.answer, Keyword: bestKeyword, Score: best.score})
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Score < results[b].Score
	})
	return results
}

// Lookup returns the best entry when its score is below the acceptance threshold
func (m *Matcher) Lookup(query string) (Match, bool) {
	ranked := m.Rank(query)
	if len(ranked) == 0 {
		return Match{}, false
	}
	if best := ranked[0]; best.Score < m.opts.AcceptThreshold {
		return best, true
	}
	return Match{}, false
}

// searchWords scores the keyword against every run of consecutive query words
// with the same word count. Query runes the keyword does not cover count as
// errors, and the run's offset in the query is the positional penalty.
func (k indexedKeyword) searchWords(q []rune, spans []span, params searchParams) searchResult {
	best := searchResult{score: 1}
	if k.words == 0 || len(spans) < k.words {
		return best
	}

	local := searchParams{distance: params.distance, threshold: params.threshold}
	for i := 0; i+k.words <= len(spans); i++ {
		start, end := spans[i].start, spans[i+k.words-1].end
		window := q[start:end]

		r := k.pattern.searchIn(window, local)
		if !r.matched {
			continue
		}
		extra := max(0, len(window)-len(k.runes))
		score := r.score + params.score(len(k.runes), extra, start, params.location)
		if score > params.threshold {
			continue
		}
		if score < minPartialScore && !equalRunes(window, q) {
			score = minPartialScore
		}
		if !best.matched || score < best.score {
			best = searchResult{matched: true, score: score}
		}
	}
	return best
}

type span struct {
	start, end int
}

// tokenSpans splits on whitespace and punctuation. Joiners such as ZWNJ stay inside a word.
func tokenSpans(text []rune) []span {
	var spans []span
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			if start >= 0 {
				spans = append(spans, span{start, i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start, len(text)})
	}
	return spans
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
