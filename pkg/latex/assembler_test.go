package latex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, content string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "supo.tex")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return dir, path
}

func TestAssemble(t *testing.T) {
	src := "\\documentclass{article}\n...body..."
	dir, path := writeSource(t, src)

	out, err := Assemble(path, "/tmpl/template.tex", DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "modifiedSupo.tex"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	expected := "\\input{infofile.tex}\n" +
		"\\documentclass[10pt,\\jkfside,a4paper]{article}\n" +
		"\\input{/tmpl/template.tex}\n" +
		"...body..."
	assert.Equal(t, expected, string(data))

	t.Run("header order", func(t *testing.T) {
		s := string(data)
		artifact := strings.Index(s, `\input{infofile.tex}`)
		class := strings.Index(s, DocumentClass)
		template := strings.Index(s, `\input{/tmpl/template.tex}`)
		assert.True(t, artifact >= 0 && artifact < class && class < template)
	})

	t.Run("source unchanged", func(t *testing.T) {
		orig, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, src, string(orig))
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}

func TestAssembleReplacesFirstMarkerOnly(t *testing.T) {
	src := "\\documentclass{article}\n% \\documentclass{article}\n"
	_, path := writeSource(t, src)

	out, err := Assemble(path, "t.tex", DefaultOptions())
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Marker))
	assert.True(t, strings.HasPrefix(string(data), `\input{infofile.tex}`))
}

func TestAssembleIdempotentOutput(t *testing.T) {
	_, path := writeSource(t, "\\documentclass{article}\nbody\n")

	out1, err := Assemble(path, "/tmpl/template.tex", DefaultOptions())
	require.NoError(t, err)
	first, err := os.ReadFile(out1)
	require.NoError(t, err)

	out2, err := Assemble(path, "/tmpl/template.tex", DefaultOptions())
	require.NoError(t, err)
	second, err := os.ReadFile(out2)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	assert.Equal(t, first, second)
}

func TestAssembleOnOwnOutput(t *testing.T) {
	dir, path := writeSource(t, "\\documentclass{article}\nbody\n")

	out, err := Assemble(path, "/tmpl/template.tex", DefaultOptions())
	require.NoError(t, err)

	_, err = Assemble(out, "/tmpl/template.tex", Options{OutputPath: filepath.Join(dir, "again.tex")})
	assert.ErrorIs(t, err, ErrMarkerMissing)

	_, statErr := os.Stat(filepath.Join(dir, "again.tex"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAssembleMarkerMissing(t *testing.T) {
	dir, path := writeSource(t, "\\documentclass[12pt]{report}\nbody\n")

	_, err := Assemble(path, "/tmpl/template.tex", DefaultOptions())
	assert.ErrorIs(t, err, ErrMarkerMissing)

	_, statErr := os.Stat(filepath.Join(dir, "modifiedSupo.tex"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestAssembleSourceNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := Assemble(filepath.Join(dir, "supo.tex"), "/tmpl/template.tex", DefaultOptions())
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestAssembleRejectsSourceAsOutput(t *testing.T) {
	_, path := writeSource(t, "\\documentclass{article}\n")

	_, err := Assemble(path, "/tmpl/template.tex", Options{OutputPath: "supo.tex"})
	assert.ErrorIs(t, err, ErrOutputIsSource)
}

func TestAssembleRequiresTemplate(t *testing.T) {
	_, path := writeSource(t, "\\documentclass{article}\n")

	_, err := Assemble(path, "", DefaultOptions())
	assert.ErrorIs(t, err, ErrTemplateRequired)
}

func TestTransform(t *testing.T) {
	out, err := Transform("pre\\documentclass{article}post", "info.tex", "tmpl.tex")
	require.NoError(t, err)
	assert.Equal(t, "pre"+Header("info.tex", "tmpl.tex")+"post", out)

	_, err = Transform("no marker", "info.tex", "tmpl.tex")
	assert.ErrorIs(t, err, ErrMarkerMissing)
}
