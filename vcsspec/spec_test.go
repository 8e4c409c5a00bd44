package vcsspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuangyeshuo/vanadev/errors"
)

func TestParseFullSpec(t *testing.T) {
	spec, err := Parse("git+https://github.com/chuangyeshuo/sqlvana@fix-qdrant#egg=sqlvana[chromadb,snowflake,openai]")
	require.NoError(t, err)

	assert.Equal(t, "https://github.com/chuangyeshuo/sqlvana", spec.URL)
	assert.Equal(t, "fix-qdrant", spec.Ref)
	assert.Equal(t, "sqlvana", spec.Egg)
	assert.Equal(t, []string{"chromadb", "snowflake", "openai"}, spec.Extras)
}

func TestParseWithoutRef(t *testing.T) {
	spec, err := Parse("git+https://github.com/chuangyeshuo/sqlvana#egg=sqlvana")
	require.NoError(t, err)

	assert.Empty(t, spec.Ref)
	assert.Empty(t, spec.Extras)
	assert.Equal(t, "sqlvana", spec.Egg)
}

func TestParseRefContainingSlash(t *testing.T) {
	spec, err := Parse("git+https://github.com/chuangyeshuo/sqlvana@feature/retry-otp#egg=sqlvana[all]")
	require.NoError(t, err)

	assert.Equal(t, "feature/retry-otp", spec.Ref)
	assert.Equal(t, []string{"all"}, spec.Extras)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no scheme prefix", "https://github.com/x/y@main#egg=y"},
		{"no egg fragment", "git+https://github.com/x/y@main"},
		{"fragment without egg=", "git+https://github.com/x/y@main#name=y"},
		{"empty url", "git+#egg=y"},
		{"unterminated extras", "git+https://github.com/x/y#egg=y[all"},
		{"invalid extra name", "git+https://github.com/x/y#egg=y[a space]"},
		{"invalid egg name", "git+https://github.com/x/y#egg=-bad-"},
		{"unsupported scheme", "git+ftp://github.com/x/y#egg=y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidSpec),
				"expected ErrInvalidSpec, got %v", err)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"git+https://github.com/chuangyeshuo/sqlvana@main#egg=sqlvana[chromadb,snowflake,openai]",
		"git+https://github.com/chuangyeshuo/sqlvana#egg=sqlvana",
		"git+https://github.com/chuangyeshuo/sqlvana@v0.1#egg=sqlvana[all]",
	}

	for _, in := range inputs {
		spec, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, spec.String(), "canonical form should round-trip")
	}
}

func TestExtrasOrderPreserved(t *testing.T) {
	spec, err := Parse("git+https://github.com/x/y#egg=y[openai,chromadb,snowflake]")
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "chromadb", "snowflake"}, spec.Extras)
	assert.Equal(t, "git+https://github.com/x/y#egg=y[openai,chromadb,snowflake]", spec.String())
}

func TestWithRef(t *testing.T) {
	spec, err := Parse("git+https://github.com/chuangyeshuo/sqlvana@main#egg=sqlvana[all]")
	require.NoError(t, err)

	branched := spec.WithRef("fix-qdrant")
	assert.Equal(t, "fix-qdrant", branched.Ref)
	assert.Equal(t, "main", spec.Ref, "original should be untouched")
	assert.Equal(t, spec.Extras, branched.Extras)

	// Mutating the copy's extras must not leak into the original
	branched.Extras[0] = "mutated"
	assert.Equal(t, "all", spec.Extras[0])
}

func TestWithExtras(t *testing.T) {
	spec, err := Parse("git+https://github.com/chuangyeshuo/sqlvana@main#egg=sqlvana")
	require.NoError(t, err)

	extended := spec.WithExtras([]string{"chromadb", "openai"})
	assert.Equal(t, "git+https://github.com/chuangyeshuo/sqlvana@main#egg=sqlvana[chromadb,openai]", extended.String())
	assert.Empty(t, spec.Extras)
}

func TestPipArgument(t *testing.T) {
	spec, err := Parse("git+https://github.com/chuangyeshuo/sqlvana@main#egg=sqlvana[all]")
	require.NoError(t, err)
	assert.Equal(t, "'git+https://github.com/chuangyeshuo/sqlvana@main#egg=sqlvana[all]'", spec.PipArgument())
}
