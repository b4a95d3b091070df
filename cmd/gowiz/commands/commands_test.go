package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gowiz/cmd/gowiz/config"
	"github.com/willibrandon/gowiz/cmd/gowiz/output"
)

// isolate hides configuration files and environment of the machine.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv(config.DefinitionPathEnv, "")
}

func writeDefinitions(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// catalogueDir holds:
//
//	app 1.0.0 -> lib >=1
//	lib 1.0.0, lib 2.0.0
//	x 1.0.0 -> lib <2
//	y 1.0.0 -> lib >=2
//	broken 1.0.0 -> missing
func catalogueDir(t *testing.T) string {
	return writeDefinitions(t, map[string]string{
		"app.yaml":    "identifier: app\nversion: 1.0.0\ndescription: The application\nrequirements: [\"lib >=1\"]\n",
		"lib/1.yaml":  "identifier: lib\nversion: 1.0.0\n",
		"lib/2.json":  `{"identifier": "lib", "version": "2.0.0", "description": "The library"}`,
		"x.yaml":      "identifier: x\nversion: 1.0.0\nrequirements: [\"lib <2\"]\n",
		"y.yaml":      "identifier: y\nversion: 1.0.0\nrequirements: [\"lib >=2\"]\n",
		"broken.yaml": "identifier: broken\nversion: 1.0.0\nrequirements: [missing]\n",
	})
}

type execution struct {
	stdout bytes.Buffer
	stderr bytes.Buffer
	err    error
}

func execute(t *testing.T, newCommand func(*output.Console) *cobra.Command, args ...string) *execution {
	t.Helper()

	e := &execution{}
	console := output.NewConsole(&e.stdout, &e.stderr, output.VerbosityNormal)

	cmd := newCommand(console)
	cmd.SetArgs(args)
	cmd.SetOut(&e.stdout)
	cmd.SetErr(&e.stderr)
	e.err = cmd.ExecuteContext(context.Background())
	return e
}
