package corpus

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCorpus is returned for any corpus that cannot be loaded or fails validation
var ErrInvalidCorpus = errors.New("invalid corpus")

//go:embed default.json
var defaultCorpus []byte

// Format is a corpus document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Entry is one question/answer record
type Entry struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	Answer   string   `json:"answer" yaml:"answer"`
}

// Corpus is an ordered, read-only set of entries
type Corpus struct {
	entries []Entry
}

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// New builds a corpus from entries, copying them
func New(entries []Entry) (*Corpus, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidCorpus)
	}

	copied := make([]Entry, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("%w: entry %d: answer is required", ErrInvalidCorpus, i)
		}
		if len(e.Keywords) == 0 {
			return nil, fmt.Errorf("%w: entry %d: at least one keyword is required", ErrInvalidCorpus, i)
		}
		keywords := make([]string, len(e.Keywords))
		for j, k := range e.Keywords {
			if strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("%w: entry %d: keyword %d is blank", ErrInvalidCorpus, i, j)
			}
			keywords[j] = k
		}
		copied[i] = Entry{Keywords: keywords, Answer: e.Answer}
	}

	return &Corpus{entries: copied}, nil
}

// Load reads a corpus file; the format is chosen by extension (.json, .yaml, .yml)
func Load(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidCorpus, path, err)
	}

	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("%w: unsupported corpus file extension %q", ErrInvalidCorpus, filepath.Ext(path))
	}

	c, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse validates and decodes a corpus document
func Parse(data []byte, format Format) (*Corpus, error) {
	var doc interface{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse JSON: %v", ErrInvalidCorpus, err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse YAML: %v", ErrInvalidCorpus, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidCorpus, format)
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}

	var entries []Entry
	var err error
	if format == FormatJSON {
		err = json.Unmarshal(data, &entries)
	} else {
		err = yaml.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode entries: %v", ErrInvalidCorpus, err)
	}

	return New(entries)
}

// Validate checks a decoded document against Schema
func Validate(doc interface{}) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: schema validation error: %v", ErrInvalidCorpus, err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidCorpus, strings.Join(msgs, "; "))
	}
	return nil
}

// Default returns the embedded corpus
func Default() *Corpus {
	c, err := Parse(defaultCorpus, FormatJSON)
	if err != nil {
		panic(fmt.Sprintf("embedded corpus is invalid: %v", err))
	}
	return c
}

// Len returns the number of entries
func (c *Corpus) Len() int {
	return len(c.entries)
}

// Entry returns a copy of the entry at index i
func (c *Corpus) Entry(i int) Entry {
	e := c.entries[i]
	return Entry{Keywords: append([]string(nil), e.Keywords...), Answer: e.Answer}
}

// Entries returns a copy of all entries in order
func (c *Corpus) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i := range c.entries {
		out[i] = c.Entry(i)
	}
	return out
}
