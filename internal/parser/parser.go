// Package parser reads plan documents: Markdown with YAML frontmatter and
// [[marker-id]] links in the body.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the frontmatter date format.
const DateLayout = "2006-01-02"

var wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)

// GoalSpec is one entry of the frontmatter goals list.
type GoalSpec struct {
	ID        string   `yaml:"id,omitempty"`
	Marker    string   `yaml:"marker"`
	Direction string   `yaml:"direction"`
	Target    float64  `yaml:"target"`
	Upper     *float64 `yaml:"upper,omitempty"`
}

type frontmatter struct {
	Title   string     `yaml:"title"`
	Start   string     `yaml:"start"`
	Target  string     `yaml:"target"`
	Markers []string   `yaml:"markers"`
	Goals   []GoalSpec `yaml:"goals"`
}

// Result holds the output of parsing a plan document.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Start       *time.Time
	Target      *time.Time
	// Links are the [[marker-id]] targets found in the body.
	Links []string
	// Markers is the frontmatter markers list followed by body links,
	// without duplicates.
	Markers []string
	Goals   []GoalSpec
}

// Parse extracts frontmatter, body and marker references. Broken YAML is
// not an error: the whole document is treated as body. Unparseable dates
// are reported as errors because they would silently change which plan
// is active.
func Parse(data []byte) (*Result, error) {
	fm, block, body := splitFrontmatter(data)

	var typed frontmatter
	if block != nil {
		if err := yaml.Unmarshal(block, &typed); err != nil {
			// Shape mismatch, e.g. goals given as a string. Keep the title.
			typed = frontmatter{}
			if t, ok := fm["title"].(string); ok {
				typed.Title = t
			}
		}
	}

	start, err := parseDate("start", typed.Start)
	if err != nil {
		return nil, err
	}
	target, err := parseDate("target", typed.Target)
	if err != nil {
		return nil, err
	}

	links := extractLinks(body)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(typed.Title, body),
		Start:       start,
		Target:      target,
		Links:       links,
		Markers:     mergeMarkers(typed.Markers, links),
		Goals:       typed.Goals,
	}, nil
}

// splitFrontmatter separates the YAML block between leading --- fences
// from the body. Without a valid block the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, []byte, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, nil, string(data)
	}

	block := rest[:idx]
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(block, &fm); err != nil {
		return nil, nil, string(data)
	}
	return fm, block, body
}

func parseDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDay(s)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: invalid date %q", field, s)
	}
	return &t, nil
}

// ParseDay reads a date-only value: YYYY-MM-DD, or an RFC 3339 timestamp
// reduced to the calendar date in its own offset. The result is midnight UTC.
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// extractLinks returns deduplicated wikilink targets, dropping aliases.
func extractLinks(body string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func mergeMarkers(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, id := range list {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// deriveTitle prefers the frontmatter title, then the first H1.
func deriveTitle(fmTitle, body string) string {
	if t := strings.TrimSpace(fmTitle); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
