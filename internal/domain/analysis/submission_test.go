package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionValidate(t *testing.T) {
	neg := -1.0
	ok := 25000.0

	cases := []struct {
		name   string
		in     Submission
		fields []string
	}{
		{"valid", Submission{Title: "Eco Packaging", Description: "Biodegradable packaging for grocery retailers", Category: "Retail", Budget: &ok}, nil},
		{"short title", Submission{Title: " Eco ", Description: "Biodegradable packaging for grocery retailers"}, []string{"title"}},
		{"short description", Submission{Title: "Eco Packaging", Description: "too short"}, []string{"description"}},
		{"negative budget", Submission{Title: "Eco Packaging", Description: "Biodegradable packaging for grocery retailers", Budget: &neg}, []string{"estimated_budget"}},
		{"unknown category", Submission{Title: "Eco Packaging", Description: "Biodegradable packaging for grocery retailers", Category: "space"}, []string{"category"}},
		{"everything wrong", Submission{Title: "x", Description: "y", Budget: &neg}, []string{"title", "description", "estimated_budget"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Normalize().Validate()
			if tc.fields == nil {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Len(t, ve.Fields, len(tc.fields))
			for _, f := range tc.fields {
				assert.Contains(t, ve.Fields, f)
			}
		})
	}
}

func TestNormalizeDefaultsCategory(t *testing.T) {
	s := Submission{Title: "  Eco Packaging  ", Category: " retail "}.Normalize()
	assert.Equal(t, "Eco Packaging", s.Title)
	assert.Equal(t, "RETAIL", s.Category)

	assert.Equal(t, "OTHER", Submission{}.Normalize().Category)
}

func TestParseRecommendation(t *testing.T) {
	assert.Equal(t, RecommendProceedCaution, ParseRecommendation("PROCEED_WITH_CAUTION"))
	assert.Equal(t, RecommendProceedCaution, ParseRecommendation("Proceed with caution"))
	assert.Equal(t, RecommendReject, ParseRecommendation("REJECT"))
	assert.Equal(t, RecommendModify, ParseRecommendation("maybe?"))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusAnalyzing.Terminal())
	assert.True(t, StatusQueued.InProgress())
	assert.True(t, ReportFailed.Settled())
	assert.False(t, ReportRetrying.Settled())
}
