package profiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListSQL(t *testing.T) {
	tests := []struct {
		name          string
		query         ListQuery
		wantFragments []string
		wantArgs      []interface{}
	}{
		{
			name:          "no_filter",
			query:         ListQuery{},
			wantFragments: []string{`FROM "profiles"`, `ORDER BY "name" ASC`},
		},
		{
			name:  "search_matches_name_email_registration",
			query: ListQuery{Search: "ana"},
			wantFragments: []string{
				`"name" ILIKE`, `"email" ILIKE`, `"registration" ILIKE`,
			},
			wantArgs: []interface{}{"%ana%", "%ana%", "%ana%"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := buildListSQL(tc.query)
			require.NoError(t, err)
			for _, fragment := range tc.wantFragments {
				assert.Contains(t, sql, fragment)
			}
			if len(tc.wantArgs) == 0 {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tc.wantArgs, args)
			}
		})
	}
}
