package books

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListSQL(t *testing.T) {
	tests := []struct {
		name         string
		query        ListQuery
		wantContains []string
		wantArgs     []interface{}
	}{
		{
			name:         "no_filters",
			query:        ListQuery{},
			wantContains: []string{`FROM "books"`, `ORDER BY "title" ASC`},
			wantArgs:     []interface{}{},
		},
		{
			name:  "search_matches_title_author_isbn",
			query: ListQuery{Search: "orwell"},
			wantContains: []string{
				`"title" ILIKE`,
				`"author" ILIKE`,
				`"isbn" ILIKE`,
				` OR `,
			},
			wantArgs: []interface{}{"%orwell%", "%orwell%", "%orwell%"},
		},
		{
			name:         "category_is_exact_match",
			query:        ListQuery{Category: "Romance"},
			wantContains: []string{`"category" = `},
			wantArgs:     []interface{}{"Romance"},
		},
		{
			name:  "search_and_category_combine",
			query: ListQuery{Search: "assis", Category: "Romance"},
			wantContains: []string{
				`"title" ILIKE`,
				`"category" = `,
			},
			wantArgs: []interface{}{"%assis%", "%assis%", "%assis%", "Romance"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := buildListSQL(tc.query)
			require.NoError(t, err)
			for _, fragment := range tc.wantContains {
				assert.True(t, strings.Contains(sql, fragment), "query %q should contain %q", sql, fragment)
			}
			if len(tc.wantArgs) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tc.wantArgs, args)
			}
		})
	}
}

func TestValidateBookFields(t *testing.T) {
	valid := func() (string, string, string, string, int, int) {
		return "1984", "George Orwell", "9780451524935", "Ficção", 1949, 3
	}

	t.Run("valid_passes", func(t *testing.T) {
		title, author, isbn, category, year, quantity := valid()
		assert.NoError(t, validateBookFields(title, author, isbn, category, year, quantity))
	})

	tests := []struct {
		name   string
		mutate func(title, author, isbn, category *string, year, quantity *int)
	}{
		{"empty_title", func(title, _, _, _ *string, _, _ *int) { *title = "  " }},
		{"empty_author", func(_, author, _, _ *string, _, _ *int) { *author = "" }},
		{"short_isbn", func(_, _, isbn, _ *string, _, _ *int) { *isbn = "123" }},
		{"empty_category", func(_, _, _, category *string, _, _ *int) { *category = "" }},
		{"year_too_old", func(_, _, _, _ *string, year, _ *int) { *year = 1500 }},
		{"year_in_future", func(_, _, _, _ *string, year, _ *int) { *year = time.Now().Year() + 2 }},
		{"zero_quantity", func(_, _, _, _ *string, _, quantity *int) { *quantity = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			title, author, isbn, category, year, quantity := valid()
			tc.mutate(&title, &author, &isbn, &category, &year, &quantity)
			err := validateBookFields(title, author, isbn, category, year, quantity)
			require.Error(t, err)
		})
	}
}
