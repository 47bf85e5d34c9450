package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/foundryrun/harvest/pkg/core"
)

type fakeRepr struct{ text string }

func (f fakeRepr) Name() string   { return "fake_repr" }
func (f fakeRepr) String() string { return f.text }
func (f fakeRepr) Materialize(path string) error {
	return os.WriteFile(path, []byte(f.text), 0o644)
}

func newTestConfig(t *testing.T) *core.Config {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.DiagnosticsDir = filepath.Join(t.TempDir(), "diag")
	cfg.Logging.Output = []string{"memory"}
	return cfg
}

func TestNewCreatesLayout(t *testing.T) {
	cfg := newTestConfig(t)
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.DirExists(t, filepath.Join(c.Dir(), "ir"))
	require.DirExists(t, filepath.Join(c.Dir(), "steps"))
	require.FileExists(t, filepath.Join(c.Dir(), "messages"))
}

func TestNewRejectsNonEmptyDirWithoutForce(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DiagnosticsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DiagnosticsDir, "stale"), []byte("x"), 0o644))

	_, err := New(cfg)
	require.ErrorIs(t, err, ErrEmptyDir)
}

func TestNewWipesNonEmptyDirWithForce(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Force = true
	require.NoError(t, os.MkdirAll(cfg.DiagnosticsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DiagnosticsDir, "stale"), []byte("x"), 0o644))

	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NoFileExists(t, filepath.Join(cfg.DiagnosticsDir, "stale"))
}

func TestStartToolRunAllocatesSequentialRunIDs(t *testing.T) {
	cfg := newTestConfig(t)
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	reporter := c.Reporter()

	joiner1, tr1, err := reporter.StartToolRun("load_raw_source")
	require.NoError(t, err)
	joiner2, tr2, err := reporter.StartToolRun("load_raw_source")
	require.NoError(t, err)

	require.Equal(t, filepath.Join(c.Dir(), "steps", "load_raw_source_001"), tr1.RunDir())
	require.Equal(t, filepath.Join(c.Dir(), "steps", "load_raw_source_002"), tr2.RunDir())

	tr1.Logf("did a thing")
	joiner1.Close()
	joiner1.Join()
	joiner2.Close()
	joiner2.Join()

	require.FileExists(t, filepath.Join(tr1.RunDir(), "messages"))
}

func TestReportIRVersionMaterializesAndIndexes(t *testing.T) {
	cfg := newTestConfig(t)
	c, err := New(cfg)
	require.NoError(t, err)
	defer c.Close()

	arbiter := core.NewArbiter()
	edit, err := arbiter.NewEdit(map[core.ID]struct{}{})
	require.NoError(t, err)
	id := edit.AddRepresentation(fakeRepr{text: "world"})
	require.NoError(t, arbiter.Apply(edit))

	reporter := c.Reporter()
	reporter.ReportIRVersion(1, arbiter.Snapshot())

	versionDir := filepath.Join(c.Dir(), "ir", "001")
	require.DirExists(t, versionDir)
	require.FileExists(t, filepath.Join(versionDir, "index"))

	content, err := os.ReadFile(filepath.Join(versionDir, fmt.Sprintf("%03d", uint64(id))))
	require.NoError(t, err)
	require.Equal(t, "world", string(content))
}
