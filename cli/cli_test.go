package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	inDir(t, t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.Cluster.Hosts)
	assert.Equal(t, 9042, cfg.Cluster.Port)
	assert.Equal(t, "QUORUM", cfg.Cluster.Consistency)
	assert.Equal(t, "SimpleStrategy", cfg.Replication["class"])
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yml := `
cluster:
  hosts: ["10.0.0.5", "10.0.0.6"]
  port: 9043
  username: ops
keys:
  tenant: acme
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cqlforge.yml"), []byte(yml), 0o644))
	inDir(t, dir)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.5", "10.0.0.6"}, cfg.Cluster.Hosts)
	assert.Equal(t, 9043, cfg.Cluster.Port)
	assert.Equal(t, "ops", cfg.Cluster.Username)
	assert.Equal(t, "acme", cfg.Keys["tenant"])
}

func inDir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(prev) })
}

func TestCutPair(t *testing.T) {
	name, value, ok := cutPair("tenant=acme")
	assert.True(t, ok)
	assert.Equal(t, "tenant", name)
	assert.Equal(t, "acme", value)

	_, _, ok = cutPair("nonsense")
	assert.False(t, ok)
	_, _, ok = cutPair("=value")
	assert.False(t, ok)
}

func TestDestructive(t *testing.T) {
	assert.False(t, destructive([]string{"ALTER TABLE t ADD c int"}))
	assert.True(t, destructive([]string{"ALTER TABLE t DROP c"}))
}

func TestVersionCommandOutput(t *testing.T) {
	var buf bytes.Buffer
	cmd := New(App{Name: "demo", Version: "1.2.3", Commit: "abc"})
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "demo 1.2.3")
	assert.Contains(t, buf.String(), "commit: abc")
}
