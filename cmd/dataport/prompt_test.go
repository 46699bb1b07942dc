package main

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptPassword_NotATerminal(t *testing.T) {
	in := strings.NewReader("s3cret\nnext line\n")
	var out bytes.Buffer

	password, err := promptPassword(in, bufio.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)
	assert.Empty(t, out.String(), "no prompt when reading from a pipe")
}

func TestPromptLine(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("  ana@example.com  "))
	var out bytes.Buffer

	email, err := promptLine(reader, &out, "Email: ")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", email)
	assert.Equal(t, "Email: ", out.String())

	_, err = promptLine(reader, &out, "Email: ")
	assert.ErrorIs(t, err, io.EOF)
}

func TestTerminalFd(t *testing.T) {
	_, ok := terminalFd(strings.NewReader(""))
	assert.False(t, ok)
	_, ok = terminalFd(&bytes.Buffer{})
	assert.False(t, ok)
}
