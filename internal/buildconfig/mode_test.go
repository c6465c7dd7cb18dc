package buildconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		name     string
		flag     string
		expected Mode
	}{
		{name: "development", flag: "development", expected: Development},
		{name: "production", flag: "production", expected: Production},
		{name: "staging falls back", flag: "staging", expected: Production},
		{name: "empty falls back", flag: "", expected: Production},
		{name: "case sensitive", flag: "Development", expected: Production},
		{name: "no trimming", flag: " development", expected: Production},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ParseMode(tt.flag))
		})
	}
}

func TestParseModeStrict(t *testing.T) {
	mode, err := ParseModeStrict("development")
	require.NoError(t, err)
	require.Equal(t, Development, mode)

	mode, err = ParseModeStrict("production")
	require.NoError(t, err)
	require.Equal(t, Production, mode)

	for _, flag := range []string{"staging", "", "prod", "dev"} {
		_, err := ParseModeStrict(flag)
		require.ErrorIs(t, err, ErrUnknownMode, flag)
	}
}

func TestMode_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Development)
	require.NoError(t, err)
	require.JSONEq(t, `"development"`, string(data))

	data, err = json.Marshal(Production)
	require.NoError(t, err)
	require.JSONEq(t, `"production"`, string(data))
}
