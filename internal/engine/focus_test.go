package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFocusClassifier_Default(t *testing.T) {
	c := DefaultFocusClassifier()
	tests := []struct {
		name, category string
		want           []FocusArea
	}{
		{"ApoB", "Lipider", []FocusArea{FocusCardiovascular}},
		{"CRP", "", []FocusArea{FocusInflammation}},
		{"Östradiol", "Hormoner", []FocusArea{FocusHormones}},
		{"P-Östradiol", "", []FocusArea{FocusHormones}},
		{"SR (Sänka)", "", []FocusArea{FocusInflammation}},
		{"Ferritin", "Inflammation", []FocusArea{FocusInflammation, FocusMicronutrients}},
		{"TSH", "Sköldkörtel", []FocusArea{FocusThyroid}},
		{"HbA1c", "", []FocusArea{FocusMetabolic}},
		{"Kreatinin", "Njurar", []FocusArea{FocusKidney}},
		{"Leverprov", "", []FocusArea{FocusLiver}},
		{"GT", "", []FocusArea{FocusLiver}},
		{"S-GT", "", []FocusArea{FocusLiver}},
		{"Triglycerider", "", []FocusArea{FocusCardiovascular}},
		{"Mystery value", "Misc", []FocusArea{FocusOther}},
		{"", "", []FocusArea{FocusOther}},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.name, tt.category))
		})
	}
}

func TestContainsAny_WholeWordKeywords(t *testing.T) {
	assert.True(t, containsAny("s-gt", []string{"=gt"}))
	assert.True(t, containsAny("gt (gamma)", []string{"=gt"}))
	assert.False(t, containsAny("triglycerider", []string{"=gt"}))
	assert.False(t, containsAny("ggt", []string{"=gt"}))
	assert.True(t, containsAny("ggt", []string{"=gt", "ggt"}))
}

func TestFocusClassifier_CategoryBeforeName(t *testing.T) {
	c, err := NewFocusClassifier(KeywordTable{Areas: []AreaKeywords{
		{Tag: FocusMicronutrients, Category: []string{"vitamin"}},
		{Tag: FocusCardiovascular, Name: []string{"omega"}},
	}})
	require.NoError(t, err)
	// Cardiovascular is canonically first, but only matched by name.
	assert.Equal(t, []FocusArea{FocusMicronutrients, FocusCardiovascular}, c.Classify("Omega-3 index", "Vitaminer"))
}

func TestFocusClassifier_TableOrderIrrelevant(t *testing.T) {
	a, err := NewFocusClassifier(KeywordTable{Areas: []AreaKeywords{
		{Tag: FocusLiver, Name: []string{"alat", "ggt"}},
		{Tag: FocusBlood, Name: []string{"ggt"}},
	}})
	require.NoError(t, err)
	b, err := NewFocusClassifier(KeywordTable{Areas: []AreaKeywords{
		{Tag: FocusBlood, Name: []string{"ggt"}},
		{Tag: FocusLiver, Name: []string{"ggt", "alat"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, a.Classify("GGT", ""), b.Classify("GGT", ""))
	assert.Equal(t, []FocusArea{FocusLiver, FocusBlood}, a.Classify("GGT", ""))
}

func TestFocusClassifier_MergesDuplicateTags(t *testing.T) {
	c, err := NewFocusClassifier(KeywordTable{Areas: []AreaKeywords{
		{Tag: FocusKidney, Name: []string{"egfr"}},
		{Tag: FocusKidney, Name: []string{"cystatin", "EGFR"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, []FocusArea{FocusKidney}, c.Classify("Cystatin C", ""))
	assert.Equal(t, []FocusArea{FocusKidney}, c.Classify("eGFR", ""))
}

func TestNewFocusClassifier_RejectsUnknownTag(t *testing.T) {
	_, err := NewFocusClassifier(KeywordTable{Areas: []AreaKeywords{{Tag: "skin", Name: []string{"x"}}}})
	assert.Error(t, err)
	_, err = NewFocusClassifier(KeywordTable{Areas: []AreaKeywords{{Tag: FocusOther, Name: []string{"x"}}}})
	assert.Error(t, err)
}

func TestParseKeywordTable(t *testing.T) {
	tbl, err := ParseKeywordTable([]byte("areas:\n  - tag: liver\n    name: [alat]\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Areas, 1)
	assert.Equal(t, FocusLiver, tbl.Areas[0].Tag)

	_, err = ParseKeywordTable([]byte("areas: 5"))
	assert.Error(t, err)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "skoldkortel", fold("  Sköldkörtel "))
	assert.Equal(t, "ostradiol", fold("ÖSTRADIOL"))
	assert.Equal(t, "", fold("   "))
}
