// Package fallback produces templated replies for queries the corpus cannot answer.
package fallback

import (
	"errors"
	"fmt"
	"strings"
)

// Placeholder is replaced with the user's query in every template
const Placeholder = "{query}"

var (
	// ErrNoTemplates is returned when a selector is built without templates
	ErrNoTemplates = errors.New("fallback template set is empty")
	// ErrMissingPlaceholder is returned for a template that does not reference the query
	ErrMissingPlaceholder = errors.New("fallback template has no " + Placeholder + " placeholder")
)

// DefaultTemplates are used when none are configured
var DefaultTemplates = []string{
	`متاسفانه پاسخ دقیقی برای "{query}" در دیتابیس من وجود ندارد، اما می‌توانم به شما کمک کنم تا آن را جستجو کنید.`,
	`سؤال خوبی درباره "{query}" پرسیدید! من در حال یادگیری هستم و به زودی بتوانم پاسخ بهتری بدهم.`,
	`در مورد "{query}" می‌توانم بگویم که این موضوع بسیار جالب است.`,
}

// Source yields uniformly distributed ints in [0, n). *math/rand/v2.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// Selector picks a template uniformly at random
type Selector struct {
	templates []string
	src       Source
}

// New validates templates and binds the random source
func New(templates []string, src Source) (*Selector, error) {
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}
	if src == nil {
		return nil, errors.New("fallback random source is required")
	}
	for i, t := range templates {
		if !strings.Contains(t, Placeholder) {
			return nil, fmt.Errorf("template %d: %w", i, ErrMissingPlaceholder)
		}
	}

	return &Selector{
		templates: append([]string(nil), templates...),
		src:       src,
	}, nil
}

// Templates returns a copy of the template set in order
func (s *Selector) Templates() []string {
	return append([]string(nil), s.templates...)
}

// Pick renders a randomly chosen template for query.
// Not safe for concurrent use unless the Source is.
func (s *Selector) Pick(query string) string {
	i := s.src.IntN(len(s.templates))
	return Render(s.templates[i], query)
}

// Render substitutes query into a template
func Render(template, query string) string {
	return strings.ReplaceAll(template, Placeholder, query)
}
