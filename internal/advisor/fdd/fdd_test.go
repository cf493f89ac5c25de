package fdd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTopics(t *testing.T) *Topics {
	t.Helper()
	topics, err := LoadTopics()
	require.NoError(t, err)
	return topics
}

func TestRelevantItems(t *testing.T) {
	topics := loadTopics(t)

	tests := []struct {
		name     string
		question string
		want     []int
	}{
		{"royalty", "What is the Royalty rate?", []int{6}},
		{"multiple topics sorted", "How much is the franchise fee and what training do I get?", []int{5, 11}},
		{"substring match", "Are there any lawsuits?", []int{3}},
		{"defaults", "Tell me about this opportunity", []int{5, 6, 7, 11, 19}},
		{"earnings", "What are average sales for a unit?", []int{19}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, topics.RelevantItems(tt.question))
		})
	}
}

func TestRelevantItemsReturnsCopyOfDefaults(t *testing.T) {
	topics := loadTopics(t)
	got := topics.RelevantItems("hello")
	got[0] = 99
	assert.Equal(t, 5, topics.RelevantItems("hello")[0])
}

func TestParseTopicsRejectsBadItems(t *testing.T) {
	_, err := ParseTopics([]byte("default_items: [5]\nitems:\n  24: [foo]\n"))
	assert.Error(t, err)

	_, err = ParseTopics([]byte("items:\n  5: [fee]\n"))
	assert.Error(t, err)

	topics, err := ParseTopics([]byte("default_items: [7]\nitems:\n  5: [\" Franchise FEE \"]\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{5}, topics.RelevantItems("what is the franchise fee"))
}

const sampleFDD = `FRANCHISE DISCLOSURE DOCUMENT
TABLE OF CONTENTS
ITEM 5  INITIAL FEES 4
ITEM 6  OTHER FEES 6
EXHIBITS:
A. Franchise Agreement

ITEM 5: INITIAL FEES
You must pay us an initial franchise fee of $45,000 when you sign the franchise agreement. The fee is fully earned and non-refundable.
6. We do business under the name Example Brands.

ITEM 6: OTHER FEES
Royalty of 6% of gross sales is payable weekly. A brand fund contribution of 2% of gross sales is also payable weekly to us.

ITEM 7: ESTIMATED INITIAL INVESTMENT
Short.
`

func TestExtractSection(t *testing.T) {
	section, ok := ExtractSection(sampleFDD, 5)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(section, "ITEM 5: INITIAL FEES"))
	assert.Contains(t, section, "$45,000")
	assert.Contains(t, section, "6. We do business")
	assert.NotContains(t, section, "Royalty")

	section, ok = ExtractSection(sampleFDD, 6)
	require.True(t, ok)
	assert.Contains(t, section, "Royalty of 6%")
	assert.NotContains(t, section, "ESTIMATED")
}

func TestExtractSectionSkipsShortAndMissing(t *testing.T) {
	_, ok := ExtractSection(sampleFDD, 7)
	assert.False(t, ok)

	_, ok = ExtractSection(sampleFDD, 19)
	assert.False(t, ok)
}

func TestExtractSections(t *testing.T) {
	content, found := ExtractSections(sampleFDD, []int{5, 7, 6})
	assert.Equal(t, []int{5, 6}, found)
	assert.Contains(t, content, "=== ITEM 5 ===")
	assert.Contains(t, content, "=== ITEM 6 ===")
	assert.NotContains(t, content, "=== ITEM 7 ===")
}

func TestParseTableOfContents(t *testing.T) {
	assert.Equal(t, map[int]int{5: 4, 6: 6}, ParseTableOfContents(sampleFDD))
	assert.Empty(t, ParseTableOfContents("ITEM 5: INITIAL FEES"))
}

func TestParseCitation(t *testing.T) {
	answer, src := ParseCitation("The initial fee is $45,000.\n\n[SOURCE: Item 5]")
	assert.Equal(t, "The initial fee is $45,000.", answer)
	require.NotNil(t, src)
	assert.Equal(t, 5, src.Item)
	assert.Nil(t, src.Page)

	answer, src = ParseCitation("Royalty is 6%. [source: item 6, page 12]")
	assert.Equal(t, "Royalty is 6%.", answer)
	require.NotNil(t, src)
	assert.Equal(t, 6, src.Item)
	require.NotNil(t, src.Page)
	assert.Equal(t, 12, *src.Page)

	answer, src = ParseCitation("  No citation here.  ")
	assert.Equal(t, "No citation here.", answer)
	assert.Nil(t, src)
}
