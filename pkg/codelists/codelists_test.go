package codelists

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		majorVersion string
		list         Name
		code         string
		expectCode   string
		expectErr    bool
	}{
		{
			name:         "known activity status",
			majorVersion: "2",
			list:         ActivityStatus,
			code:         "2",
			expectCode:   "2",
		},
		{
			name:         "unknown activity status",
			majorVersion: "2",
			list:         ActivityStatus,
			code:         "99",
			expectErr:    true,
		},
		{
			name:         "empty code",
			majorVersion: "2",
			list:         Currency,
			code:         "",
			expectErr:    true,
		},
		{
			name:         "structural currency",
			majorVersion: "2",
			list:         Currency,
			code:         "USD",
			expectCode:   "USD",
		},
		{
			name:         "malformed currency",
			majorVersion: "2",
			list:         Currency,
			code:         "US",
			expectErr:    true,
		},
		{
			name:         "v1 textual organisation role",
			majorVersion: "1",
			list:         OrganisationRole,
			code:         "Funding",
			expectCode:   "Funding",
		},
		{
			name:         "v2 numeric organisation role",
			majorVersion: "2",
			list:         OrganisationRole,
			code:         "1",
			expectCode:   "1",
		},
		{
			name:         "numeric role invalid in v1",
			majorVersion: "1",
			list:         OrganisationRole,
			code:         "1",
			expectErr:    true,
		},
		{
			name:         "v1 letter transaction type",
			majorVersion: "1",
			list:         TransactionType,
			code:         "IF",
			expectCode:   "IF",
		},
		{
			name:         "unknown major version",
			majorVersion: "3",
			list:         ActivityStatus,
			code:         "2",
			expectErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := Resolve(tt.majorVersion, tt.list, tt.code)
			if tt.expectErr {
				require.Error(t, err)
				var clErr *CodelistError
				require.ErrorAs(t, err, &clErr)
				assert.Equal(t, tt.list, clErr.Codelist)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectCode, value.Code)
		})
	}
}

func TestResolveLabels(t *testing.T) {
	value, err := Resolve("2", TransactionType, "3")
	require.NoError(t, err)
	assert.Equal(t, "Disbursement", value.Label)

	value, err = Resolve("2", Country, "GB")
	require.NoError(t, err)
	assert.Empty(t, value.Label)
}
