package stores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLocalStoreAbsentKey(t *testing.T) {
	store, err := NewFileLocalStore(t.TempDir())
	require.NoError(t, err)

	data, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestFileLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileLocalStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("liked_posts", []byte(`["a","b"]`)))
	require.NoError(t, store.Set("liked_posts", []byte(`["a"]`)))

	// A second store over the same directory sees the last write, as a
	// restarted process would.
	reopened, err := NewFileLocalStore(dir)
	require.NoError(t, err)

	data, err := reopened.Get("liked_posts")
	require.NoError(t, err)
	assert.Equal(t, []byte(`["a"]`), data)
}
