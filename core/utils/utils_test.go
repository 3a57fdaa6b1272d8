package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRemoveDuplicates(t *testing.T) {
	require.Equal(t, []string{"wget", "git"}, RemoveDuplicates([]string{"wget", "git", "wget"}))
	require.Equal(t, []string{}, RemoveDuplicates([]string{}))
}

func TestFindDuplicate(t *testing.T) {
	dup, found := FindDuplicate([]string{"wget", "git", "wget"})
	require.True(t, found)
	require.Equal(t, "wget", dup)

	_, found = FindDuplicate([]string{"wget", "git"})
	require.False(t, found)
}

func TestSortedKeys(t *testing.T) {
	m := map[string]string{"b": "2", "a": "1", "c": "3"}
	require.Equal(t, []string{"a", "b", "c"}, SortedKeys(m))
}
