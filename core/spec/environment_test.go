package spec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromEnvs(t *testing.T) {
	env, err := FromEnvs([]string{"BASEFAB_BASE_IMAGE=debian:12", "LANG=C.UTF-8"})
	require.NoError(t, err)
	require.Equal(t, "debian:12", env.GetVariable("BASEFAB_BASE_IMAGE"))
	require.Equal(t, "C.UTF-8", env.GetVariable("LANG"))
}

func TestGetConfigVariable(t *testing.T) {
	env := NewEnvironment(&map[string]string{"BASEFAB_PACKAGES": " wget git \n"})
	require.Equal(t, "wget git", env.GetConfigVariable("PACKAGES"))
	require.Equal(t, "", env.GetConfigVariable("MISSING"))
}
