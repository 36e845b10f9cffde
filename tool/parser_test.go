package tool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantOK   bool
		wantCall ParsedCall
		wantErr  bool
	}{
		{
			name:     "single quoted argument",
			reply:    `Tool: search_food("tacos")`,
			wantOK:   true,
			wantCall: ParsedCall{Name: "search_food", Arguments: []string{"tacos"}},
		},
		{
			name:     "two arguments",
			reply:    `Let me check. Tool: weather("29.42", "-98.49")`,
			wantOK:   true,
			wantCall: ParsedCall{Name: "weather", Arguments: []string{"29.42", "-98.49"}},
		},
		{
			name:     "empty parentheses",
			reply:    "Tool: get_todays_date()",
			wantOK:   true,
			wantCall: ParsedCall{Name: "get_todays_date", Arguments: []string{}},
		},
		{
			name:     "no space after marker",
			reply:    `Tool:geocode("Austin")`,
			wantOK:   true,
			wantCall: ParsedCall{Name: "geocode", Arguments: []string{"Austin"}},
		},
		{
			name:     "unquoted argument",
			reply:    "Tool: geocode(Austin)",
			wantOK:   true,
			wantCall: ParsedCall{Name: "geocode", Arguments: []string{"Austin"}},
		},
		{
			name:     "first call wins",
			reply:    `Tool: a("1") and then Tool: b("2")`,
			wantOK:   true,
			wantCall: ParsedCall{Name: "a", Arguments: []string{"1"}},
		},
		{
			name:   "no marker",
			reply:  "The weather is sunny.",
			wantOK: false,
		},
		{
			name:    "marker without call expression",
			reply:   "Tool: I am not sure which one to use",
			wantErr: true,
		},
		{
			name:    "unterminated call",
			reply:   `Tool: weather("1"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call, ok, err := Parse(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, ok)
				assert.True(t, errors.Is(err, ErrParseAmbiguous))

				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.reply, perr.Reply)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.wantCall, call)
			}
		})
	}
}

func TestParse_Idempotent(t *testing.T) {
	reply := `Tool: weather("1", "2")`

	a, okA, errA := Parse(reply)
	b, okB, errB := Parse(reply)

	assert.Equal(t, a, b)
	assert.Equal(t, okA, okB)
	assert.Equal(t, errA, errB)
}

func TestParse_SplitsOnCommaSpace(t *testing.T) {
	// Commas inside an argument are indistinguishable from separators.
	call, ok, err := Parse(`Tool: search_google_web("Austin, TX")`)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Austin", "TX"}, call.Arguments)
}

func TestParsedCall_String(t *testing.T) {
	call := ParsedCall{Name: "weather", Arguments: []string{"1", "2"}}
	assert.Equal(t, `Tool: weather("1", "2")`, call.String())

	again, ok, err := Parse(call.String())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, call, again)
}
