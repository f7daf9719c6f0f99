package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gompdf/pagedpreview/internal/geometry"
	"github.com/gompdf/pagedpreview/pkg/api"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assertDefaults(t, cfg)
}

func assertDefaults(t *testing.T, cfg *Config) {
	t.Helper()
	d := DefaultConfig()
	assert.Equal(t, d.Page, cfg.Page)
	assert.Equal(t, d.Numbering, cfg.Numbering)
	assert.Equal(t, d.Log, cfg.Log)
	assert.Equal(t, d.Server, cfg.Server)
	assert.Equal(t, d.Measure.Backend, cfg.Measure.Backend)
	assert.Equal(t, d.Measure.Tolerance, cfg.Measure.Tolerance)
	assert.Zero(t, cfg.Measure.Tolerance)
	assert.False(t, cfg.Measure.RemoteResources)
	assert.Empty(t, cfg.Measure.Stylesheets)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
page:
  size: Legal
  orientation: landscape
  margins: {top: 10, right: 10, bottom: 10, left: 10}
  white_space: pre-wrap
numbering:
  enabled: false
server:
  pass_timeout: 5s
`), 0o644))
	t.Setenv("PAGEDPREVIEW_PAGE_TAB_SIZE", "4")
	t.Setenv("PAGEDPREVIEW_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Legal", cfg.Page.Size)
	assert.Equal(t, "landscape", cfg.Page.Orientation)
	assert.Equal(t, 10.0, cfg.Page.Margins.Left)
	assert.Equal(t, 4, cfg.Page.TabSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Numbering.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Server.PassTimeout)
	assert.Equal(t, "Times New Roman", cfg.Page.FontFamily, "unset keys keep their defaults")

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err, "an explicit file must exist")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, WriteDefault(path, false))
	assert.Error(t, WriteDefault(path, false), "existing files are kept")
	require.NoError(t, WriteDefault(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assertDefaults(t, cfg)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("PAGEDPREVIEW_MEASURE_BACKEND=browser\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("PAGEDPREVIEW_MEASURE_BACKEND") })

	require.NoError(t, LoadEnv(env, filepath.Join(dir, "missing.env")))
	t.Chdir(dir)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "browser", cfg.Measure.Backend)
}

func TestOptions(t *testing.T) {
	dir := t.TempDir()
	css := filepath.Join(dir, "deed.css")
	require.NoError(t, os.WriteFile(css, []byte("p { margin: 0 }"), 0o644))

	cfg := DefaultConfig()
	cfg.Page.Size = "letter"
	cfg.Measure.Stylesheets = []string{css}
	cfg.Measure.Tolerance = 0

	o, err := cfg.Options(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, geometry.SizeLetter, o.PageSize)
	assert.Equal(t, api.BackendMetrics, o.Backend)
	assert.Equal(t, []string{"p { margin: 0 }"}, o.Stylesheets)
	assert.Zero(t, o.Tolerance)
	assert.False(t, o.RemoteResources)
	assert.True(t, o.Numbering.Enabled)

	cfg.Measure.RemoteResources = true
	o, err = cfg.Options(zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, o.RemoteResources)

	g, err := o.ResolveGeometry()
	require.NoError(t, err)
	assert.Equal(t, 816.0, g.PageWidth)
	assert.Equal(t, 94.0, g.Padding.Top, "25mm at 96 px/in")

	cfg.Page.WhiteSpace = "wrap-anywhere"
	_, err = cfg.Options(zerolog.Nop())
	assert.ErrorIs(t, err, geometry.ErrInvalidGeometry)

	cfg = DefaultConfig()
	cfg.Numbering.Vertical = "middle"
	_, err = cfg.Options(zerolog.Nop())
	assert.Error(t, err)
}
