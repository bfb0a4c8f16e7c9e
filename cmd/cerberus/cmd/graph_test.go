package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCmd_WalksCallees(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"graph", "caller", "--direction", "callees", "--offline"})

	err := cmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "caller")
}

func TestGraphCmd_UnknownSymbol_ReturnsError(t *testing.T) {
	withTestProject(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"graph", "NoSuchSymbol", "--offline"})

	err := cmd.Execute()

	assert.Error(t, err)
}
