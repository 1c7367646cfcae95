package dicom

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry()

	blob := []byte("instance-bytes")
	first, err := registry.Register(ctx, blob)
	require.NoError(t, err)
	second, err := registry.Register(ctx, []byte("other"))
	require.NoError(t, err)

	assert.Equal(t, "dicomfile:0", first)
	assert.Equal(t, "dicomfile:1", second)
	assert.Equal(t, 2, registry.Len())

	blob[0] = 'X'

	t.Run("open returns the registered copy", func(t *testing.T) {
		reader, size, err := registry.Open(ctx, first)
		require.NoError(t, err)
		defer reader.Close()
		content, err := io.ReadAll(reader)
		require.NoError(t, err)

		assert.Equal(t, int64(len("instance-bytes")), size)
		assert.Equal(t, "instance-bytes", string(content))
	})

	t.Run("frame suffix resolves to the instance", func(t *testing.T) {
		reader, _, err := registry.Open(ctx, second+"?frame=3")
		require.NoError(t, err)
		defer reader.Close()
		content, _ := io.ReadAll(reader)

		assert.Equal(t, "other", string(content))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, _, err := registry.Open(ctx, "dicomfile:99")
		assert.ErrorIs(t, err, ErrBlobNotFound)
	})
}

func TestImageIDBase(t *testing.T) {
	assert.Equal(t, "dicomfile:4", ImageIDBase("dicomfile:4?frame=2"))
	assert.Equal(t, "dicomfile:4", ImageIDBase("dicomfile:4"))
	assert.Equal(t, "studies/1/objects/a", ImageIDBase("studies/1/objects/a?frame=0"))
}
