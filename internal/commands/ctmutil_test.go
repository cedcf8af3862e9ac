package commands

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCmdErrWrapsNonNilError(t *testing.T) {
	wrapped := cmdErr(errors.New("boom"))
	require.Error(t, wrapped)
	require.Equal(t, "error already printed", wrapped.Error())

	var pe printedError
	require.ErrorAs(t, wrapped, &pe)
	require.EqualError(t, pe.err, "boom")
}

func TestCmdErrPassesThroughNil(t *testing.T) {
	require.NoError(t, cmdErr(nil))
}

func TestProjectConfigPathIsRelativeOverlay(t *testing.T) {
	require.Equal(t, ".ctm/config.json", filepath.ToSlash(projectConfigPath()))
}
