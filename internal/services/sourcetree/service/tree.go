package service

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	perr "codefrog/internal/platform/errors"
	"codefrog/internal/services/sourcetree/domain"

	"codefrog/internal/adapters/gitcli"
)

// excludedBasenames never become nodes
var excludedBasenames = map[string]bool{
	"package-lock.json": true,
}

// treeNode is the in-memory shape before persistence
type treeNode struct {
	name       string
	path       string // repo relative, "" for root
	kind       string
	complexity int64
	parent     *treeNode
	children   []*treeNode
	lft, rgt   int64
}

// excluded reports whether a repo relative path is filtered from snapshots
func excluded(rel string) bool {
	if rel == ".git" || strings.HasPrefix(rel, ".git/") || strings.Contains(rel, "/.git/") {
		return true
	}
	return excludedBasenames[filepath.Base(rel)]
}

// walkTree reads the working copy into an in-memory tree. File complexity
// is computed inline, directory complexity is the sum of the subtree.
func walkTree(dir string) (*treeNode, error) {
	root := &treeNode{kind: domain.KindDir}
	index := map[string]*treeNode{"": root}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		node := &treeNode{name: d.Name(), path: rel, kind: domain.KindFile}
		if d.IsDir() {
			node.kind = domain.KindDir
		} else {
			node.complexity = fileComplexity(p)
		}

		parent := index[parentPath(rel)]
		if parent == nil {
			// WalkDir visits parents first, a miss means the parent was excluded
			return nil
		}
		node.parent = parent
		parent.children = append(parent.children, node)
		index[rel] = node
		return nil
	})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "walk working tree %s", dir)
	}

	sortTree(root)
	sumDirComplexity(root)
	return root, nil
}

func parentPath(rel string) string {
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return ""
}

func sortTree(n *treeNode) {
	sort.Slice(n.children, func(i, j int) bool { return n.children[i].name < n.children[j].name })
	for _, c := range n.children {
		sortTree(c)
	}
}

func sumDirComplexity(n *treeNode) int64 {
	if n.kind == domain.KindFile {
		return n.complexity
	}
	var total int64
	for _, c := range n.children {
		total += sumDirComplexity(c)
	}
	n.complexity = total
	return total
}

// fileComplexity is the total leading indentation of the file plus a one
// point baseline. Unreadable or non-UTF-8 content counts as 1, treating
// binaries as opaque single units.
func fileComplexity(path string) int64 {
	content, err := os.ReadFile(path)
	if err != nil || !utf8.Valid(content) {
		return 1
	}
	var total int64 = 1
	for _, line := range strings.Split(string(content), "\n") {
		total += gitcli.LineComplexity(line)
	}
	return total
}

// flatten assigns nested set bounds in one depth first pass and returns
// nodes in insertion order, parents before children
func flatten(root *treeNode) []*treeNode {
	var out []*treeNode
	var counter int64

	var visit func(n *treeNode)
	visit = func(n *treeNode) {
		counter++
		n.lft = counter
		out = append(out, n)
		for _, c := range n.children {
			visit(c)
		}
		counter++
		n.rgt = counter
	}
	visit(root)
	return out
}
