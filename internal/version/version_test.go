package version

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet_RoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	artifact, err := store.Put("add preferences column", "ALTER TABLE users ADD COLUMN x INT;", "ALTER TABLE users DROP COLUMN x;", "rev-1")
	require.NoError(t, err)
	require.NotEmpty(t, artifact.VersionID)

	sum := sha256.Sum256([]byte(artifact.UpgradeSQL))
	assert.Equal(t, hex.EncodeToString(sum[:])[:16], artifact.Checksum)

	fetched, err := store.Get(artifact.VersionID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "ALTER TABLE users ADD COLUMN x INT;", fetched.UpgradeSQL)
	assert.Equal(t, "ALTER TABLE users DROP COLUMN x;", fetched.DowngradeSQL)
	assert.Equal(t, artifact.Checksum, fetched.Checksum)
}

func TestStore_Get_MissingVersion(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	artifact, err := store.Get("does_not_exist")
	require.NoError(t, err)
	assert.Nil(t, artifact)
}

func TestStore_Put_DistinctVersionIDs(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		artifact, err := store.Put("d", "SELECT 1;", "", "")
		require.NoError(t, err)
		assert.False(t, seen[artifact.VersionID], "version_id %s reused", artifact.VersionID)
		seen[artifact.VersionID] = true
	}
}

func TestStore_List_DescendingOrder(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		artifact, err := store.Put("d", "SELECT 1;", "", "")
		require.NoError(t, err)
		ids = append(ids, artifact.VersionID)
	}

	versions, err := store.List()
	require.NoError(t, err)
	require.Len(t, versions, 3)

	for i := 1; i < len(versions); i++ {
		assert.Greater(t, versions[i-1].VersionID, versions[i].VersionID)
	}
}

func TestStore_List_SkipsUnreadableEntries(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Put("d", "SELECT 1;", "", "")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(dir+"/not_a_version", 0o755))

	versions, err := store.List()
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestStore_List_EmptyWhenDirMissing(t *testing.T) {
	store := &Store{rootDir: "/nonexistent/path/for/test"}
	versions, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestPreset_KnownAndUnknown(t *testing.T) {
	upgrade, downgrade, ok := Preset("add_column")
	require.True(t, ok)
	assert.Contains(t, upgrade, "ALTER TABLE")
	assert.NotEmpty(t, downgrade)

	_, _, ok = Preset("not_a_real_preset")
	assert.False(t, ok)
}

func TestPresetNames(t *testing.T) {
	names := PresetNames()
	assert.Contains(t, names, "add_column")
	assert.Contains(t, names, "add_table")
	assert.Contains(t, names, "add_index")
	assert.Contains(t, names, "complex")
}
