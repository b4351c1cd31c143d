package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Normal(t *testing.T) {
	content := []byte(`# administrators
alice
bob:/bin/ls

	carol
`)
	doc, err := Parse("/etc/execas/policy", content)
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Len())
}

func TestParse_MalformedLineFailsWholeLoad(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    int
	}{
		{name: "empty principal before constraint", content: "alice\n:ls\n", line: 2},
		{name: "empty command constraint", content: "alice:\n", line: 1},
		{name: "whitespace in principal", content: "al ice\n", line: 1},
		{name: "second separator", content: "alice:/bin/ls:extra\n", line: 1},
		{name: "whitespace in constraint", content: "alice:rm -rf\n", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("policy", []byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPolicy)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.line, parseErr.Line)
		})
	}
}

func TestIsAuthorized_DefaultDeny(t *testing.T) {
	doc, err := Parse("policy", []byte("alice\n"))
	require.NoError(t, err)

	assert.False(t, doc.IsAuthorized("bob", "/bin/ls"))
	assert.False(t, doc.IsAuthorized("", "/bin/ls"))
}

func TestIsAuthorized_EmptyDocumentDeniesEveryone(t *testing.T) {
	doc, err := Parse("policy", []byte("# nobody yet\n\n"))
	require.NoError(t, err)
	assert.False(t, doc.IsAuthorized("alice", "whoami"))
}

func TestIsAuthorized_UnconstrainedPrincipal(t *testing.T) {
	doc, err := Parse("policy", []byte("alice\n"))
	require.NoError(t, err)

	assert.True(t, doc.IsAuthorized("alice", "whoami"))
	assert.True(t, doc.IsAuthorized("alice", "rm"))
}

func TestIsAuthorized_CommandConstraintIsExactMatch(t *testing.T) {
	doc, err := Parse("policy", []byte("alice:ls\n"))
	require.NoError(t, err)

	assert.True(t, doc.IsAuthorized("alice", "ls"))
	assert.False(t, doc.IsAuthorized("alice", "rm"))
	assert.False(t, doc.IsAuthorized("alice", "lsblk"), "constraint must not match as a prefix")
	assert.False(t, doc.IsAuthorized("alice", "/bin/ls"))
}

func TestIsAuthorized_FirstMatchingEntryWins(t *testing.T) {
	doc, err := Parse("policy", []byte("alice:ls\nalice\n"))
	require.NoError(t, err)

	// The later unconstrained entry must not widen the earlier constrained one.
	assert.True(t, doc.IsAuthorized("alice", "ls"))
	assert.False(t, doc.IsAuthorized("alice", "rm"))

	doc, err = Parse("policy", []byte("bob\nbob:ls\n"))
	require.NoError(t, err)
	assert.True(t, doc.IsAuthorized("bob", "rm"))
}

func TestParse_TrimsWhitespaceAroundFields(t *testing.T) {
	doc, err := Parse("policy", []byte("  alice : ls \n"))
	require.NoError(t, err)
	assert.True(t, doc.IsAuthorized("alice", "ls"))
}
