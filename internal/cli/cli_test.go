package cli

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCodeNilPassthrough(t *testing.T) {
	assert.NoError(t, withCode(ExitAgentFailed, nil))
}

func TestWithCodeWrapsAndUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := withCode(ExitAgentFailed, base)
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
	assert.True(t, errors.Is(err, base))

	var coded *codedError
	require.True(t, errors.As(err, &coded))
	assert.Equal(t, ExitAgentFailed, coded.code)
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	a := &app{}
	root := a.newRootCmd("test")
	root.SetArgs([]string{"no-such-command"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	err := root.Execute()
	require.Error(t, err)
	// The prerun never ran, which is what maps this to the
	// invalid-arguments exit code.
	assert.False(t, a.invoked)
}

func TestHelpSucceeds(t *testing.T) {
	a := &app{}
	root := a.newRootCmd("test")
	root.SetArgs([]string{"--help"})
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)

	require.NoError(t, root.Execute())
}
