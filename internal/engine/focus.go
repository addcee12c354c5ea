package engine

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// FocusArea is an organ-system tag assigned to a marker.
type FocusArea string

// Focus areas in canonical order.
const (
	FocusCardiovascular FocusArea = "cardiovascular"
	FocusMetabolic      FocusArea = "metabolic"
	FocusLiver          FocusArea = "liver"
	FocusKidney         FocusArea = "kidney"
	FocusThyroid        FocusArea = "thyroid"
	FocusInflammation   FocusArea = "inflammation"
	FocusBlood          FocusArea = "blood"
	FocusHormones       FocusArea = "hormones"
	FocusMicronutrients FocusArea = "micronutrients"
	FocusElectrolytes   FocusArea = "electrolytes"
	FocusOther          FocusArea = "other"
)

var canonicalAreas = []FocusArea{
	FocusCardiovascular, FocusMetabolic, FocusLiver, FocusKidney, FocusThyroid,
	FocusInflammation, FocusBlood, FocusHormones, FocusMicronutrients, FocusElectrolytes,
	FocusOther,
}

// AllFocusAreas returns every focus area in canonical order.
func AllFocusAreas() []FocusArea {
	out := make([]FocusArea, len(canonicalAreas))
	copy(out, canonicalAreas)
	return out
}

func areaIndex(a FocusArea) int {
	for i, c := range canonicalAreas {
		if c == a {
			return i
		}
	}
	return -1
}

//go:embed focus_areas.yaml
var defaultKeywordTable []byte

// KeywordTable is the declarative tag → keywords mapping behind the
// focus-area classifier.
type KeywordTable struct {
	Areas []AreaKeywords `yaml:"areas"`
}

// AreaKeywords lists the keywords that put a marker into one focus area.
type AreaKeywords struct {
	Tag      FocusArea `yaml:"tag"`
	Category []string  `yaml:"category"`
	Name     []string  `yaml:"name"`
}

// ParseKeywordTable decodes a YAML keyword table.
func ParseKeywordTable(data []byte) (KeywordTable, error) {
	var t KeywordTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return KeywordTable{}, fmt.Errorf("engine: parse keyword table: %w", err)
	}
	return t, nil
}

// FocusClassifier maps a marker's name and category to focus areas.
// It is immutable once built and safe for concurrent use.
type FocusClassifier struct {
	category [][]string // indexed like canonicalAreas
	name     [][]string
}

// NewFocusClassifier compiles a keyword table. Entries sharing a tag are
// merged. The fallback tag "other" cannot carry keywords.
func NewFocusClassifier(t KeywordTable) (*FocusClassifier, error) {
	c := &FocusClassifier{
		category: make([][]string, len(canonicalAreas)),
		name:     make([][]string, len(canonicalAreas)),
	}
	for _, a := range t.Areas {
		idx := areaIndex(a.Tag)
		if idx < 0 || a.Tag == FocusOther {
			return nil, fmt.Errorf("engine: keyword table: unknown focus area %q", a.Tag)
		}
		c.category[idx] = appendFolded(c.category[idx], a.Category)
		c.name[idx] = appendFolded(c.name[idx], a.Name)
	}
	return c, nil
}

var defaultClassifier = sync.OnceValue(func() *FocusClassifier {
	t, err := ParseKeywordTable(defaultKeywordTable)
	if err != nil {
		panic(err)
	}
	c, err := NewFocusClassifier(t)
	if err != nil {
		panic(err)
	}
	return c
})

// DefaultFocusClassifier returns the classifier built from the embedded table.
func DefaultFocusClassifier() *FocusClassifier {
	return defaultClassifier()
}

// Classify returns the focus areas for a marker, never empty.
// Category matches come first, then areas matched only by name; each
// group is in canonical order so the result does not depend on how the
// keyword table is ordered.
func (c *FocusClassifier) Classify(name, category string) []FocusArea {
	fc, fn := fold(category), fold(name)

	byCategory := make([]bool, len(canonicalAreas))
	byName := make([]bool, len(canonicalAreas))
	for i := range canonicalAreas {
		byCategory[i] = fc != "" && containsAny(fc, c.category[i])
		byName[i] = fn != "" && containsAny(fn, c.name[i])
	}

	var out []FocusArea
	for i, a := range canonicalAreas {
		if byCategory[i] {
			out = append(out, a)
		}
	}
	for i, a := range canonicalAreas {
		if byName[i] && !byCategory[i] {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return []FocusArea{FocusOther}
	}
	return out
}

// containsAny reports whether s contains any keyword. A keyword starting
// with "=" must match a whole word of s instead of a substring.
func containsAny(s string, keywords []string) bool {
	var words []string
	for _, k := range keywords {
		if w, ok := strings.CutPrefix(k, "="); ok {
			if words == nil {
				words = strings.FieldsFunc(s, func(r rune) bool {
					return !unicode.IsLetter(r) && !unicode.IsDigit(r)
				})
			}
			if slices.Contains(words, w) {
				return true
			}
			continue
		}
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func appendFolded(dst, keywords []string) []string {
	for _, k := range keywords {
		f := fold(k)
		if f == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == f {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, f)
		}
	}
	return dst
}

// fold lowercases s and strips diacritics ("Sänka" → "sanka").
// Transformers are stateful, so a fresh chain is built per call.
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
