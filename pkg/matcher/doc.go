// Package matcher finds the corpus entry that best answers a free-text query.
//
// Scoring uses a bitap approximate search. A candidate's score is
// errors/patternLength plus |foundAt-location|/distance, so 0 means an exact
// match and 1 means no match. A query is compared against every keyword in
// both directions (query inside keyword, keyword inside query) and the entry
// keeps its best keyword score.
//
// Invariants:
// - Index structures are built once per corpus in New.
// - Lookup is deterministic; ties go to the earliest entry.
// - Only scores strictly below Options.AcceptThreshold are reported as matches.
package matcher
