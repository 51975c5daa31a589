package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFolderTree(t *testing.T) {
	t.Run("nests children under parents", func(t *testing.T) {
		infos := []FolderInfo{
			{Name: "INBOX", Delimiter: "/"},
			{Name: "Archive", Delimiter: "/"},
			{Name: "Archive/2024", Delimiter: "/"},
			{Name: "Archive/2023", Delimiter: "/"},
		}

		roots := BuildFolderTree(infos)

		require.Len(t, roots, 2)
		assert.Equal(t, "Archive", roots[0].Name)
		assert.Equal(t, "INBOX", roots[1].Name)
		require.Len(t, roots[0].Children, 2)
		assert.Equal(t, "Archive/2023", roots[0].Children[0].Name)
		assert.Equal(t, "Archive/2024", roots[0].Children[1].Name)
	})

	t.Run("synthesizes missing parents for orphans", func(t *testing.T) {
		infos := []FolderInfo{
			{Name: "a/b/c", Delimiter: "/"},
		}

		roots := BuildFolderTree(infos)

		require.Len(t, roots, 1)
		assert.Equal(t, "a", roots[0].Name)
		require.Len(t, roots[0].Children, 1)
		assert.Equal(t, "a/b", roots[0].Children[0].Name)
		require.Len(t, roots[0].Children[0].Children, 1)
		assert.Equal(t, "a/b/c", roots[0].Children[0].Children[0].Name)
	})

	t.Run("handles dot delimiters", func(t *testing.T) {
		infos := []FolderInfo{
			{Name: "INBOX", Delimiter: "."},
			{Name: "INBOX.Spam", Delimiter: "."},
		}

		roots := BuildFolderTree(infos)

		require.Len(t, roots, 1)
		assert.Equal(t, "INBOX", roots[0].Name)
		require.Len(t, roots[0].Children, 1)
		assert.Equal(t, "INBOX.Spam", roots[0].Children[0].Name)
	})
}

func TestFlatten(t *testing.T) {
	infos := []FolderInfo{
		{Name: "Archive/2024", Delimiter: "/"},
		{Name: "INBOX", Delimiter: "/"},
		{Name: "Archive", Delimiter: "/"},
	}

	paths := Flatten(BuildFolderTree(infos))

	assert.Equal(t, []string{"Archive", "Archive/2024", "INBOX"}, paths)
}

func TestSelectSyncFolders(t *testing.T) {
	t.Run("intersects interest list with the catalog", func(t *testing.T) {
		catalog := []string{"INBOX", "Sent", "Archive", "Trash"}

		selected := SelectSyncFolders(catalog)

		assert.Equal(t, []string{"INBOX", "Sent"}, selected)
	})

	t.Run("matches case-insensitively", func(t *testing.T) {
		catalog := []string{"inbox", "SENT"}

		selected := SelectSyncFolders(catalog)

		assert.Equal(t, []string{"inbox", "SENT"}, selected)
	})

	t.Run("matches on the final path segment", func(t *testing.T) {
		catalog := []string{"INBOX", "INBOX.Spam", "[Gmail]/Drafts"}

		selected := SelectSyncFolders(catalog)

		assert.Equal(t, []string{"INBOX", "[Gmail]/Drafts", "INBOX.Spam"}, selected)
	})

	t.Run("empty catalog selects nothing", func(t *testing.T) {
		assert.Empty(t, SelectSyncFolders(nil))
	})
}
