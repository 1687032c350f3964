package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/scopebuild/internal/eventstore"
	"git.home.luguber.info/inful/scopebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/scopebuild/internal/manifest"
)

// run parses args and executes the selected command, returning its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("scopebuild"),
		kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out}, &cli)
	return out.String(), err
}

func writeProject(t *testing.T, configYAML string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"scopebuild.yaml":           configYAML,
		"content/_layout.html":      "<html><body><slot></slot></body></html>",
		"content/index.md":          "---\ntitle: Home\n---\n# Home\n",
		"content/docs/_layout.hcl":  `return = h("main", {}, params.children)`,
		"content/docs/guide.hcl":    "frontmatter = { title = \"Guide\" }\nexport = h(\"p\", {}, frontmatter.title)\n",
		"content/docs/legacy.html":  "<p>legacy</p>",
		"content/_partials/nav.hcl": `return = "nav"`,
	}
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return filepath.Join(dir, "scopebuild.yaml")
}

const projectConfig = `source: ./content
output:
  directory: ./public
  manifest: true
history:
  enabled: true
  path: ./.scopebuild/history.db
`

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopebuild.yaml")

	out, err := run(t, "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, path)

	_, err = run(t, "--config", path, "init")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	_, err = run(t, "--config", path, "init", "--force")
	require.NoError(t, err)
}

func TestInitCmd_OutputDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "init", "--output", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "scopebuild.yaml"))
}

func TestBuildCmd(t *testing.T) {
	cfgPath := writeProject(t, projectConfig)
	dir := filepath.Dir(cfgPath)

	out, err := run(t, "--config", cfgPath, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "Built 3 files from 3 pages in 2 scopes")
	assert.Contains(t, out, filepath.Join(dir, "public"))

	home, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "<html><body>")

	guide, err := os.ReadFile(filepath.Join(dir, "public", "docs", "guide.html"))
	require.NoError(t, err)
	assert.Contains(t, string(guide), "<main><p>Guide</p></main>")

	m, err := manifest.Read(filepath.Join(dir, "public", manifest.FileName))
	require.NoError(t, err)
	assert.Len(t, m.Files, 3)
	assert.Contains(t, out, m.Fingerprint)

	assert.NoDirExists(t, filepath.Join(dir, "public", "_partials"))
}

func TestBuildCmd_OutputOverride(t *testing.T) {
	cfgPath := writeProject(t, projectConfig)
	target := filepath.Join(t.TempDir(), "site")

	_, err := run(t, "--config", cfgPath, "build", "--output", target)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "index.html"))
	assert.NoDirExists(t, filepath.Join(filepath.Dir(cfgPath), "public"))
}

func TestBuildCmd_MissingConfig(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "build")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestBuildCmd_RootLayoutMissing(t *testing.T) {
	cfgPath := writeProject(t, projectConfig)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(cfgPath), "content", "_layout.html")))

	_, err := run(t, "--config", cfgPath, "build")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
	assert.Equal(t, 7, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestHistoryCmd(t *testing.T) {
	cfgPath := writeProject(t, projectConfig)

	out, err := run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded")

	_, err = run(t, "--config", cfgPath, "build")
	require.NoError(t, err)

	out, err = run(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, eventstore.StatusSucceeded)
	assert.Contains(t, out, "cli")

	out, err = run(t, "--config", cfgPath, "history", "--json", "-n", "5")
	require.NoError(t, err)
	var builds []eventstore.BuildSummary
	require.NoError(t, json.Unmarshal([]byte(out), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, 3, builds[0].Files)
}

func TestHistoryCmd_Disabled(t *testing.T) {
	cfgPath := writeProject(t, "source: ./content\noutput:\n  directory: ./public\n")

	_, err := run(t, "--config", cfgPath, "history")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestInspectCmd(t *testing.T) {
	cfgPath := writeProject(t, projectConfig)

	out, err := run(t, "--config", cfgPath, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "layout _layout.html")
	assert.Contains(t, out, "index.md -> index.html  [markup]")
	assert.Contains(t, out, "  docs/  layout _layout.hcl")
	assert.Contains(t, out, "guide.hcl -> guide.html  [programmatic]")
	assert.Contains(t, out, "legacy.html -> legacy.html  [staticMarkup]")
	assert.NotContains(t, out, "_partials")
	assert.NoDirExists(t, filepath.Join(filepath.Dir(cfgPath), "public"), "inspect does not render")
}

func TestInspectCmd_JSON(t *testing.T) {
	cfgPath := writeProject(t, projectConfig)

	out, err := run(t, "--config", cfgPath, "inspect", "--format", "json")
	require.NoError(t, err)

	var tree ScopeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	assert.Equal(t, ".", tree.Path)
	assert.Equal(t, "_layout.html", tree.Layout)
	require.Len(t, tree.Pages, 1)
	assert.Equal(t, "index.md", tree.Pages[0].Source)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "docs", tree.Children[0].Path)
	assert.Len(t, tree.Children[0].Pages, 2)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scopebuild dev")
}
