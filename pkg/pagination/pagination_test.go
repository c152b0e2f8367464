package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		page    int
		perPage int
		offset  int
	}{
		{"defaults", "", 1, 20, 0},
		{"custom", "?page=3&per_page=50", 3, 50, 100},
		{"negative page", "?page=-1", 1, 20, 0},
		{"zero page", "?page=0", 1, 20, 0},
		{"page not a number", "?page=abc", 1, 20, 0},
		{"per_page over cap", "?per_page=200", 1, 20, 0},
		{"per_page at cap", "?page=2&per_page=100", 2, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/reports"+tt.query, nil)
			p := FromRequest(req)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestNewMeta(t *testing.T) {
	m := NewMeta(41, New(2, 20))
	assert.Equal(t, 3, m.TotalPages)
	assert.True(t, m.HasNext)
	assert.True(t, m.HasPrev)

	m = NewMeta(0, DefaultParams())
	assert.Equal(t, 0, m.TotalPages)
	assert.False(t, m.HasNext)
	assert.False(t, m.HasPrev)

	m = NewMeta(40, New(2, 20))
	assert.Equal(t, 2, m.TotalPages)
	assert.False(t, m.HasNext)
}

func TestMeta_EmbedsAsCamelCase(t *testing.T) {
	body := struct {
		Items []string `json:"items"`
		Meta
	}{Items: []string{"a"}, Meta: NewMeta(1, DefaultParams())}

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, float64(1), got["totalCount"])
	assert.Equal(t, float64(20), got["perPage"])
	assert.Equal(t, float64(1), got["totalPages"])
	assert.NotContains(t, got, "Meta")
}
