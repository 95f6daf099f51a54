package kss_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/homesense/core/kss"
)

// testDriver runs the same scenario against any driver
func testDriver(t *testing.T, drv kss.Driver) {
	ctx := context.Background()

	_, err := drv.Upload(ctx, "keep", bytes.NewReader([]byte{1, 2, 3}))
	require.NoError(t, err)
	for _, key := range []string{"exports/b.xlsx", "exports/a.xlsx", "exports/c.xlsx"} {
		location, err := drv.Upload(ctx, key, bytes.NewReader([]byte("data")))
		require.NoError(t, err)
		assert.NotEmpty(t, location)
	}

	keys, err := drv.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/a.xlsx", "exports/b.xlsx", "exports/c.xlsx"}, keys)

	all, err := drv.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	require.NoError(t, drv.Delete(ctx, "exports/a.xlsx"))
	require.NoError(t, drv.Delete(ctx, "exports/a.xlsx"))
	keys, err = drv.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/b.xlsx", "exports/c.xlsx"}, keys)

	_, err = drv.Upload(ctx, "../escape", bytes.NewReader(nil))
	assert.Error(t, err)
	assert.Error(t, drv.Delete(ctx, ""))

	for _, key := range all {
		require.NoError(t, drv.Delete(ctx, key))
	}
}
