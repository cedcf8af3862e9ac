package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfenaux/ctm/internal/models"
)

func TestSuccessWrapsData(t *testing.T) {
	resp := Success(map[string]string{"id": "a1"})
	require.True(t, resp.Success)
	require.Equal(t, "v1", resp.SchemaVersion)
	require.Empty(t, resp.Error)
}

func TestErrorEnrichesWithRecoverableErrorMetadata(t *testing.T) {
	err := &models.NotFoundError{Kind: "agent", ID: "abc123"}
	resp := Error(err)

	require.False(t, resp.Success)
	require.Equal(t, err.Error(), resp.Error)
	require.Equal(t, "NOT_FOUND", resp.ErrorCode)
	require.Equal(t, "abc123", resp.ErrorContext["id"])
	require.NotEmpty(t, resp.SuggestedAction)
}

func TestErrorHandlesPlainError(t *testing.T) {
	resp := Error(bytesErr("boom"))
	require.False(t, resp.Success)
	require.Equal(t, "boom", resp.Error)
	require.Empty(t, resp.ErrorCode)
}

type bytesErr string

func (b bytesErr) Error() string { return string(b) }

func TestPrintWithCompactByDefault(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Writer: &buf, Pretty: false}
	require.NoError(t, PrintWith(cfg, Success(map[string]int{"n": 1})))
	require.NotContains(t, buf.String(), "  ")

	var decoded Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.True(t, decoded.Success)
}

func TestPrintWithPrettyIndents(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Writer: &buf, Pretty: true}
	require.NoError(t, PrintWith(cfg, Success(map[string]int{"n": 1})))
	require.Contains(t, buf.String(), "  ")
}
