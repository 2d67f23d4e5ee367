package matcher

import "math"

// maxPatternBits bounds a single bitap pattern; longer patterns are searched in chunks
const maxPatternBits = 32

// minPartialScore is the floor for anything other than whole-string equality
const minPartialScore = 0.001

type searchParams struct {
	location  int
	distance  int
	threshold float64
}

func (p searchParams) score(patternLen, errors, currentLocation, expectedLocation int) float64 {
	accuracy := float64(errors) / float64(patternLen)
	proximity := currentLocation - expectedLocation
	if proximity < 0 {
		proximity = -proximity
	}
	if p.distance == 0 {
		if proximity != 0 {
			return 1.0
		}
		return accuracy
	}
	return accuracy + float64(proximity)/float64(p.distance)
}

type patternChunk struct {
	runes      []rune
	alphabet   map[rune]uint64
	startIndex int
}

// pattern is a precompiled bitap pattern
type pattern struct {
	runes  []rune
	chunks []patternChunk
}

func compilePattern(runes []rune) pattern {
	p := pattern{runes: runes}

	addChunk := func(r []rune, start int) {
		p.chunks = append(p.chunks, patternChunk{runes: r, alphabet: alphabetOf(r), startIndex: start})
	}

	n := len(runes)
	if n <= maxPatternBits {
		addChunk(runes, 0)
		return p
	}

	remainder := n % maxPatternBits
	end := n - remainder
	for i := 0; i < end; i += maxPatternBits {
		addChunk(runes[i:i+maxPatternBits], i)
	}
	if remainder > 0 {
		start := n - maxPatternBits
		addChunk(runes[start:], start)
	}
	return p
}

func alphabetOf(runes []rune) map[rune]uint64 {
	mask := make(map[rune]uint64, len(runes))
	n := len(runes)
	for i, r := range runes {
		mask[r] |= uint64(1) << uint(n-i-1)
	}
	return mask
}

type searchResult struct {
	matched bool
	score   float64
}

// searchIn scores the pattern against text. Equal strings score 0; a pattern
// split into chunks matches if any chunk does, with the chunk scores averaged.
func (p pattern) searchIn(text []rune, params searchParams) searchResult {
	if len(p.runes) == 0 {
		return searchResult{score: 1}
	}
	if equalRunes(p.runes, text) {
		return searchResult{matched: true, score: 0}
	}

	matched := false
	total := 0.0
	for _, c := range p.chunks {
		r := c.search(text, searchParams{
			location:  params.location + c.startIndex,
			distance:  params.distance,
			threshold: params.threshold,
		})
		if r.matched {
			matched = true
		}
		total += r.score
	}

	if !matched {
		return searchResult{score: 1}
	}
	return searchResult{matched: true, score: total / float64(len(p.chunks))}
}

func (c patternChunk) search(text []rune, params searchParams) searchResult {
	patternLen := len(c.runes)
	textLen := len(text)
	expected := clamp(params.location, 0, textLen)

	threshold := params.threshold
	bestLocation := expected

	// Exact occurrences tighten the threshold before the fuzzy pass.
	for {
		idx := indexRunes(text, c.runes, bestLocation)
		if idx < 0 {
			break
		}
		threshold = math.Min(params.score(patternLen, 0, idx, expected), threshold)
		bestLocation = idx + patternLen
	}

	bestLocation = -1
	bestScore := 1.0
	var lastBits []uint64
	binMax := patternLen + textLen
	mask := uint64(1) << uint(patternLen-1)

	for i := 0; i < patternLen; i++ {
		// Widest window around the expected location still under the threshold.
		binMin, binMid := 0, binMax
		for binMin < binMid {
			if params.score(patternLen, i, expected+binMid, expected) <= threshold {
				binMin = binMid
			} else {
				binMax = binMid
			}
			binMid = (binMax-binMin)/2 + binMin
		}
		binMax = binMid

		start := max(1, expected-binMid+1)
		finish := min(expected+binMid, textLen) + patternLen

		bits := make([]uint64, finish+2)
		bits[finish+1] = (uint64(1) << uint(i)) - 1

		for j := finish; j >= start; j-- {
			loc := j - 1
			var charMatch uint64
			if loc < textLen {
				charMatch = c.alphabet[text[loc]]
			}

			bits[j] = ((bits[j+1] << 1) | 1) & charMatch
			if i > 0 {
				bits[j] |= ((bitAt(lastBits, j+1) | bitAt(lastBits, j)) << 1) | 1 | bitAt(lastBits, j+1)
			}

			if bits[j]&mask != 0 {
				s := params.score(patternLen, i, loc, expected)
				if s <= threshold {
					threshold = s
					bestScore = s
					bestLocation = loc
					if bestLocation <= expected {
						break
					}
					start = max(1, 2*expected-bestLocation)
				}
			}
		}

		// One more error can't beat what we already have.
		if params.score(patternLen, i+1, expected, expected) > threshold {
			break
		}
		lastBits = bits
	}

	if bestLocation < 0 {
		return searchResult{score: 1}
	}
	return searchResult{matched: true, score: math.Max(minPartialScore, bestScore)}
}

func bitAt(bits []uint64, i int) uint64 {
	if i < 0 || i >= len(bits) {
		return 0
	}
	return bits[i]
}

func indexRunes(text, pattern []rune, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+len(pattern) <= len(text); i++ {
		if equalRunes(text[i:i+len(pattern)], pattern) {
			return i
		}
	}
	return -1
}

func equalRunes(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
