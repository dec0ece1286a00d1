package cssync

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIndexedPatcher(t *testing.T, root string) (*FileIndex, *RulePatcher) {
	t.Helper()
	ix := NewFileIndex(nil)
	_, err := ix.LoadRoot(root)
	require.NoError(t, err)
	return ix, NewRulePatcher(ix, nil)
}

func TestUpdateRuleSplicesInPlace(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "a.css", ".btn { color: red; }")
	ix, patcher := newIndexedPatcher(t, root)

	file, _ := ix.Get(path)
	patched, err := patcher.UpdateRule(path, file.Rules[0], map[string]PropertyChange{
		"color": FromTo("red", "blue"),
	})
	require.NoError(t, err)
	assert.Equal(t, ".btn", patched.Selector)
	assert.Equal(t, []string{"color"}, patched.ChangedProperties)
	assert.False(t, patched.Created)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".btn {\n  color: blue;\n}", string(content))
}

// Splice locality: every byte outside the replaced rule block survives
// unchanged, comments and oddly-spaced neighbors included.
func TestUpdateRulePreservesSurroundingBytes(t *testing.T) {
	root := t.TempDir()
	original := "/* banner */\n.first  {  color:red }\n\n/* middle */\n.btn { color: red; }\n\n.last { margin : 0 ; }\n"
	path := writeFixture(t, root, "a.css", original)
	ix, patcher := newIndexedPatcher(t, root)

	file, _ := ix.Get(path)
	var target Rule
	for _, rule := range file.Rules {
		if rule.Selector == ".btn" {
			target = rule
		}
	}
	require.NotZero(t, target.SourceEnd)

	_, err := patcher.UpdateRule(path, target, map[string]PropertyChange{
		"color": FromTo("red", "blue"),
	})
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(written)

	prefix := original[:target.SourceStart]
	suffix := original[target.SourceEnd:]
	assert.True(t, strings.HasPrefix(content, prefix), "prefix bytes must be untouched")
	assert.True(t, strings.HasSuffix(content, suffix), "suffix bytes must be untouched")
	assert.Equal(t, prefix+".btn {\n  color: blue;\n}"+suffix, content)
}

func TestUpdateRuleKeepsDeclarationOrder(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "a.css", ".card { margin: 0; padding: 4px; color: red; }")
	ix, patcher := newIndexedPatcher(t, root)

	file, _ := ix.Get(path)
	_, err := patcher.UpdateRule(path, file.Rules[0], map[string]PropertyChange{
		"padding": FromTo("4px", "8px"),
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".card {\n  margin: 0;\n  padding: 8px;\n  color: red;\n}", string(content))
}

func TestUpdateRuleAddsNewProperty(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "a.css", ".btn { color: red; }")
	ix, patcher := newIndexedPatcher(t, root)

	file, _ := ix.Get(path)
	_, err := patcher.UpdateRule(path, file.Rules[0], map[string]PropertyChange{
		"font-weight": NewValue("bold"),
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".btn {\n  color: red;\n  font-weight: bold;\n}", string(content))
}

func TestUpdateRuleDeletionSentinelRemovesProperty(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "a.css", ".btn { color: red; margin: 0; }")
	ix, patcher := newIndexedPatcher(t, root)

	file, _ := ix.Get(path)
	patched, err := patcher.UpdateRule(path, file.Rules[0], map[string]PropertyChange{
		"color": FromTo("red", DeletedValue),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"color"}, patched.ChangedProperties)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".btn {\n  margin: 0;\n}", string(content))
	assert.NotContains(t, string(content), DeletedValue)
}

func TestUpdateRuleReindexesAfterWrite(t *testing.T) {
	root := t.TempDir()
	path := writeFixture(t, root, "a.css", ".btn { color: red; }")
	ix, patcher := newIndexedPatcher(t, root)

	file, _ := ix.Get(path)
	_, err := patcher.UpdateRule(path, file.Rules[0], map[string]PropertyChange{
		"color": FromTo("red", "blue"),
	})
	require.NoError(t, err)

	reloaded, ok := ix.Get(path)
	require.True(t, ok)
	require.Len(t, reloaded.Rules, 1)
	value, _ := reloaded.Rules[0].Declarations.Get("color")
	assert.Equal(t, "blue", value)
	assert.Equal(t, reloaded.RawContent[reloaded.Rules[0].SourceStart:reloaded.Rules[0].SourceEnd],
		SerializeRule(".btn", reloaded.Rules[0].Declarations))
}

func TestUpdateRuleStaleIndex(t *testing.T) {
	root := t.TempDir()
	ix := NewFileIndex(nil)
	patcher := NewRulePatcher(ix, nil)

	_, err := patcher.UpdateRule(filepath.Join(root, "ghost.css"),
		Rule{Selector: ".x", SourceStart: 0, SourceEnd: 1},
		map[string]PropertyChange{"color": NewValue("red")})
	require.ErrorIs(t, err, ErrStaleIndex)
}

func TestCreateRuleAppendsToLargestFile(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "small.css", ".a { x: y; }")
	large := writeFixture(t, root, "large.css", ".a { x: y; }\n.b { k: v; }\n.c { m: n; }")
	_, patcher := newIndexedPatcher(t, root)

	patched, err := patcher.CreateRule(".new-component", map[string]PropertyChange{
		"color": NewValue("green"),
	}, root)
	require.NoError(t, err)
	assert.True(t, patched.Created)
	assert.Equal(t, large, patched.FilePath)

	content, err := os.ReadFile(large)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "\n\n.new-component {\n  color: green;\n}"))
	assert.True(t, strings.HasPrefix(string(content), ".a { x: y; }"))
}

func TestCreateRuleSynthesizesMainCSS(t *testing.T) {
	root := t.TempDir()
	ix := NewFileIndex(nil)
	patcher := NewRulePatcher(ix, nil)

	patched, err := patcher.CreateRule(".hero", map[string]PropertyChange{
		"display": NewValue("flex"),
	}, root)
	require.NoError(t, err)
	assert.True(t, patched.Created)
	assert.Equal(t, filepath.Join(root, "main.css"), patched.FilePath)

	content, err := os.ReadFile(patched.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Created by cssync")
	assert.Contains(t, string(content), ".hero {\n  display: flex;\n}")

	// The synthesized file is indexed and immediately matchable.
	file, ok := ix.Get(patched.FilePath)
	require.True(t, ok)
	require.Len(t, file.Rules, 1)
	assert.Equal(t, ".hero", file.Rules[0].Selector)
}

func TestCreateRuleSkipsDeletions(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.css", ".a { x: y; }")
	_, patcher := newIndexedPatcher(t, root)

	_, err := patcher.CreateRule(".fresh", map[string]PropertyChange{
		"color":  NewValue("red"),
		"margin": FromTo("4px", DeletedValue),
	}, root)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "a.css"))
	require.NoError(t, err)
	assert.Contains(t, string(content), ".fresh {\n  color: red;\n}")
	assert.NotContains(t, string(content), DeletedValue)
}
