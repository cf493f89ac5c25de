// Package fdd holds the text helpers behind the FDD advisor: topic
// detection, Item section extraction and citation parsing.
package fdd

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed topics.yaml
var topicsYAML []byte

// Topics maps question keywords to FDD item numbers.
type Topics struct {
	DefaultItems []int            `yaml:"default_items"`
	Items        map[int][]string `yaml:"items"`
}

// LoadTopics parses the embedded keyword map.
func LoadTopics() (*Topics, error) {
	return ParseTopics(topicsYAML)
}

func ParseTopics(data []byte) (*Topics, error) {
	var t Topics
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("fdd: parse topics: %w", err)
	}
	for item, keywords := range t.Items {
		if item < MinItem || item > MaxItem {
			return nil, fmt.Errorf("fdd: topic item %d out of range", item)
		}
		for i, kw := range keywords {
			keywords[i] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	if len(t.DefaultItems) == 0 {
		return nil, fmt.Errorf("fdd: topics define no default items")
	}
	return &t, nil
}

// RelevantItems returns the sorted items whose keywords occur in the
// question, or the default items when nothing matches.
func (t *Topics) RelevantItems(question string) []int {
	q := strings.ToLower(question)
	var items []int
	for item, keywords := range t.Items {
		for _, kw := range keywords {
			if kw != "" && strings.Contains(q, kw) {
				items = append(items, item)
				break
			}
		}
	}
	if len(items) == 0 {
		return slices.Clone(t.DefaultItems)
	}
	slices.Sort(items)
	return items
}
