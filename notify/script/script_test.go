package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thrasher-corp/chainmonitor/models"
	"github.com/thrasher-corp/chainmonitor/notify"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o755))
	return path
}

func TestNew_RejectsMissingScriptPath(t *testing.T) {
	_, err := New(models.ScriptConfig{})
	require.Error(t, err)
}

func TestSink_Send_TengoScriptTrue(t *testing.T) {
	path := writeTemp(t, "check.tengo", `result := vars["title"] == "Alert"`)

	sink, err := New(models.ScriptConfig{ScriptPath: path})
	require.NoError(t, err)
	require.NoError(t, sink.Send("Alert", "body"))
}

func TestSink_Send_TengoScriptFalse(t *testing.T) {
	path := writeTemp(t, "check.tengo", `result := vars["title"] == "Nope"`)

	sink, err := New(models.ScriptConfig{ScriptPath: path})
	require.NoError(t, err)
	err = sink.Send("Alert", "body")
	require.Error(t, err)
	require.Equal(t, notify.KindScriptExecution, err.(*notify.Error).Kind)
}

func TestSink_Send_TengoScriptMissingResult(t *testing.T) {
	path := writeTemp(t, "check.tengo", `x := 1`)

	sink, err := New(models.ScriptConfig{ScriptPath: path})
	require.NoError(t, err)
	err = sink.Send("Alert", "body")
	require.Error(t, err)
	require.Equal(t, notify.KindScriptParse, err.(*notify.Error).Kind)
}

func TestSink_Send_ScriptNotFound(t *testing.T) {
	sink, err := New(models.ScriptConfig{ScriptPath: filepath.Join(t.TempDir(), "missing.tengo")})
	require.NoError(t, err)
	err = sink.Send("Alert", "body")
	require.Error(t, err)
	require.Equal(t, notify.KindScriptNotFound, err.(*notify.Error).Kind)
}

func TestSink_Send_SubprocessTrue(t *testing.T) {
	path := writeTemp(t, "check.sh", "#!/bin/sh\necho true\n")

	sink, err := New(models.ScriptConfig{ScriptPath: path})
	require.NoError(t, err)
	require.NoError(t, sink.Send("Alert", "body"))
}

func TestSink_Send_SubprocessInvalidOutput(t *testing.T) {
	path := writeTemp(t, "check.sh", "#!/bin/sh\necho maybe\n")

	sink, err := New(models.ScriptConfig{ScriptPath: path})
	require.NoError(t, err)
	err = sink.Send("Alert", "body")
	require.Error(t, err)
	require.Equal(t, notify.KindScriptParse, err.(*notify.Error).Kind)
}

func TestSink_Send_SubprocessNotFound(t *testing.T) {
	sink, err := New(models.ScriptConfig{ScriptPath: filepath.Join(t.TempDir(), "missing.sh")})
	require.NoError(t, err)
	err = sink.Send("Alert", "body")
	require.Error(t, err)
	require.Equal(t, notify.KindScriptNotFound, err.(*notify.Error).Kind)
}
