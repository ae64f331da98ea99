package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_HasAddrFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("addr")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestNewMCPServer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	server, err := newMCPServer()
	require.NoError(t, err)
	assert.NotNil(t, server.Handler())

	searchService = nil
	_, err = newMCPServer()
	assert.ErrorContains(t, err, "search service not configured")
}
