package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindCmd_LocatesSymbol(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"find", "Greet", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "sample.go")
}

func TestFindCmd_UnknownSymbol_NoError(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"find", "DoesNotExist", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No symbol")
}
