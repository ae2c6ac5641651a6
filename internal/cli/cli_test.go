package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRootRegistersSubcommands(t *testing.T) {
	root := NewRoot()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["take"])
	require.True(t, names["record"])
	require.True(t, names["vrecord"])
}

func TestGlobalsBaseAppliesFlagsAndTimeout(t *testing.T) {
	g := &globals{address: "localhost:8080", header: `{"x":"1"}`, tls: true, interactive: true}
	base := g.base(3 * time.Second)
	require.Equal(t, 3*time.Second, base.Timeout)
	require.Equal(t, "localhost:8080", base.Address)
	require.True(t, base.TLS)
	require.True(t, base.Interactive)
	require.Equal(t, `{"x":"1"}`, string(base.Header))
}

func TestGlobalsBaseHidesWritesUnlessVerbose(t *testing.T) {
	g := &globals{}
	require.True(t, g.base(0).Hide)
	g.verbose = true
	require.False(t, g.base(0).Hide)
}

func TestParseRangeParsesInclusiveBounds(t *testing.T) {
	start, end, err := parseRange("2-5")
	require.NoError(t, err)
	require.Equal(t, 2, start)
	require.Equal(t, 5, end)
}

func TestParseRangeRejectsMalformedInput(t *testing.T) {
	_, _, err := parseRange("bogus")
	require.Error(t, err)
}
