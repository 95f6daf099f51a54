package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestVersion verifies that the /version endpoint works
func TestVersion(t *testing.T) {
	s := CreateTestService(t)
	version, err := s.client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "unset", version, "expecting 'unset' version by default")

	Version = "another version"
	defer func() { Version = "unset" }()

	version, err = s.client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "another version", version)
}
