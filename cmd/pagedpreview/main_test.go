package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeInput(t *testing.T, dir, markup string) string {
	t.Helper()
	path := filepath.Join(dir, "deed.html")
	require.NoError(t, os.WriteFile(path, []byte(markup), 0o644))
	return path
}

func TestSizesCommand(t *testing.T) {
	out, err := execute(t, "sizes")
	require.NoError(t, err)
	assert.Contains(t, out, "SIZE")
	assert.Regexp(t, `A4\s+794\s+1123`, out)
	assert.Regexp(t, `Letter\s+816\s+1056`, out)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote pagedpreview.yaml")

	data, err := os.ReadFile(filepath.Join(dir, "pagedpreview.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "size: A4")

	_, err = execute(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestPaginateJSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := writeInput(t, dir, `<h1>Deed</h1><p>One</p><p>Two</p>`)

	out, err := execute(t, "paginate", "--json", "--log-level", "error", input)
	require.NoError(t, err)

	var r report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "metrics", r.Backend)
	require.Len(t, r.Pages, 1)
	assert.Equal(t, []int{0, 1, 2}, r.Pages[0].Blocks)
	assert.Equal(t, []string{"h1", "p", "p"}, r.Pages[0].Tags)
	assert.Equal(t, 794.0, r.Geometry.PageWidth)
}

func TestPaginateWritesPreview(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := writeInput(t, dir, `<p>One</p>`)

	_, err := execute(t, "paginate", "--log-level", "error", input)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "deed.preview.html"))
	require.NoError(t, err)
	html := string(data)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>deed.html</title>")
	assert.Equal(t, 1, strings.Count(html, `class="pp-page"`))

	out, err := execute(t, "paginate", "--log-level", "error", "--fragment", "-o", "-", input)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<style>"))
}

func TestPaginateRejectsBadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	input := writeInput(t, dir, `<p>One</p>`)

	_, err := execute(t, "paginate", "--log-level", "error", "--page-size", "B7", input)
	assert.ErrorContains(t, err, "unknown page size")

	_, err = execute(t, "paginate", "--log-level", "error", "--backend", "print", input)
	assert.ErrorContains(t, err, "unknown measurement backend")

	_, err = execute(t, "paginate", "--log-level", "error", filepath.Join(dir, "missing.html"))
	assert.Error(t, err)
}

func TestPreviewPath(t *testing.T) {
	assert.Equal(t, "docs/deed.preview.html", previewPath("docs/deed.html"))
	assert.Equal(t, "notes.preview.html", previewPath("notes"))
	assert.Equal(t, "preview.html", previewPath("https://example.com/deed.html"))
}
