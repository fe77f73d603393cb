package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMembers_JSON(t *testing.T) {
	path := writeFile(t, "members.json", `{
		"members": [
			{"handle": "alice", "mention_id": "U01"},
			{"handle": "@Bob"},
			{"handle": "ALICE", "mention_id": "U99"}
		]
	}`)

	members, err := LoadMembers(path)

	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "alice", members[0].Handle)
	assert.Equal(t, "U01", members[0].MentionID)
	assert.Equal(t, "Bob", members[1].Handle)
	assert.Equal(t, "", members[1].MentionID)
}

func TestLoadMembers_YAML(t *testing.T) {
	path := writeFile(t, "members.yaml", "members:\n  - handle: carol\n    mention_id: U03\n")

	members, err := LoadMembers(path)

	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "carol", members[0].Handle)
	assert.Equal(t, "U03", members[0].MentionID)
}

func TestLoadMembers_BlankHandle(t *testing.T) {
	path := writeFile(t, "members.json", `{"members": [{"handle": "alice"}, {"handle": "  "}]}`)

	_, err := LoadMembers(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "blank handle")
}

func TestLoadMembers_Empty(t *testing.T) {
	path := writeFile(t, "members.json", `{"members": []}`)

	_, err := LoadMembers(path)

	assert.Error(t, err)
}

func TestLoadMembers_MissingFile(t *testing.T) {
	_, err := LoadMembers(filepath.Join(t.TempDir(), "nope.json"))

	assert.Error(t, err)
}
