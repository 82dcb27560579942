package service

import (
	"os"
	"path/filepath"
	"testing"

	"codefrog/internal/services/sourcetree/domain"
)

func seedTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	dir := t.TempDir()
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func nodeByPath(nodes []*treeNode, path string) *treeNode {
	for _, n := range nodes {
		if n.path == path {
			return n
		}
	}
	return nil
}

func TestWalkTreeExcludesGitAndLockfiles(t *testing.T) {
	dir := seedTree(t, map[string][]byte{
		".git/HEAD":                      []byte("ref: refs/heads/main"),
		"src/main.py":                    []byte("def f():\n    pass\n"),
		"node_modules/package-lock.json": []byte("{}"),
		"node_modules/left.js":           []byte("x"),
	})

	root, err := walkTree(dir)
	if err != nil {
		t.Fatalf("walkTree: %v", err)
	}
	nodes := flatten(root)

	for _, banned := range []string{".git", ".git/HEAD", "node_modules/package-lock.json"} {
		if nodeByPath(nodes, banned) != nil {
			t.Errorf("excluded path %q became a node", banned)
		}
	}
	if nodeByPath(nodes, "src/main.py") == nil || nodeByPath(nodes, "node_modules/left.js") == nil {
		t.Error("expected nodes missing")
	}
}

func TestWalkTreeComplexityAndKinds(t *testing.T) {
	dir := seedTree(t, map[string][]byte{
		"a/deep.py": []byte("  x\n    y\n"), // 2 + 4 indentation + 1 baseline
		"top.py":    []byte("z\n"),          // 0 indentation + 1 baseline
		"bin.dat":   {0xff, 0xfe, 0x00, 0x80},
	})

	root, err := walkTree(dir)
	if err != nil {
		t.Fatalf("walkTree: %v", err)
	}
	nodes := flatten(root)

	deep := nodeByPath(nodes, "a/deep.py")
	if deep == nil || deep.complexity != 7 {
		t.Fatalf("deep.py complexity = %+v, want 7", deep)
	}
	if got := nodeByPath(nodes, "top.py").complexity; got != 1 {
		t.Errorf("top.py complexity = %d, want baseline 1", got)
	}
	if got := nodeByPath(nodes, "bin.dat").complexity; got != 1 {
		t.Errorf("binary complexity = %d, want 1", got)
	}

	a := nodeByPath(nodes, "a")
	if a == nil || a.kind != domain.KindDir {
		t.Fatal("directory node missing")
	}
	if a.complexity != 7 {
		t.Errorf("dir complexity = %d, want subtree sum 7", a.complexity)
	}
	if root.complexity != 9 {
		t.Errorf("root complexity = %d, want 9", root.complexity)
	}
}

func TestFlattenNestedSetBounds(t *testing.T) {
	dir := seedTree(t, map[string][]byte{
		"a/one.py": []byte("x"),
		"a/two.py": []byte("y"),
		"b.py":     []byte("z"),
	})

	root, err := walkTree(dir)
	if err != nil {
		t.Fatalf("walkTree: %v", err)
	}
	nodes := flatten(root)

	if nodes[0] != root || root.lft != 1 {
		t.Fatal("root must come first with lft=1")
	}
	if root.rgt != int64(2*len(nodes)) {
		t.Errorf("root rgt = %d, want %d", root.rgt, 2*len(nodes))
	}
	for _, n := range nodes {
		if n.lft >= n.rgt {
			t.Errorf("node %q has lft %d >= rgt %d", n.path, n.lft, n.rgt)
		}
		if n.parent != nil && (n.lft <= n.parent.lft || n.rgt >= n.parent.rgt) {
			t.Errorf("node %q bounds not nested in parent", n.path)
		}
	}

	// parents precede children in insertion order
	seen := map[*treeNode]bool{}
	for _, n := range nodes {
		if n.parent != nil && !seen[n.parent] {
			t.Errorf("node %q inserted before its parent", n.path)
		}
		seen[n] = true
	}
}

func TestExcluded(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{".git", true},
		{".git/config", true},
		{"vendor/.git/config", true},
		{"package-lock.json", true},
		{"sub/package-lock.json", true},
		{"src/main.py", false},
		{"gitignore", false},
	}
	for _, c := range cases {
		if got := excluded(c.path); got != c.want {
			t.Errorf("excluded(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}
