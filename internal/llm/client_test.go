// internal/llm/client_test.go
package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategoryResponse(t *testing.T) {
	content := `{
		"categories": [
			{"name": "Commerce", "tables": ["users", "orders"]},
			{"name": "Support", "tables": ["tickets"]}
		]
	}`
	proposals, err := ParseCategoryResponse(content)
	assert.NoError(t, err)
	assert.Len(t, proposals, 2)
	assert.Equal(t, "Commerce", proposals[0].Name)
	assert.Equal(t, []string{"tickets"}, proposals[1].Tables)
}

func TestParseCategoryResponseEmptySet(t *testing.T) {
	proposals, err := ParseCategoryResponse(`{"categories": []}`)
	assert.NoError(t, err)
	assert.Empty(t, proposals)
}

func TestParseCategoryResponseMalformed(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"prose instead of json", "Here are your categories: Commerce and Support."},
		{"missing categories key", `{"result": []}`},
		{"null categories", `{"categories": null}`},
		{"truncated json", `{"categories": [{"name": "Comm`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCategoryResponse(tc.content)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}
