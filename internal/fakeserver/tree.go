package fakeserver

import "github.com/latticedb/sync-core/internal/data"

// getAtPath and setAtPath walk an authoritative tree the same
// copy-on-write way internal/synctree builds overlay nodes: each level
// rebuilds only the child on the path, sharing every sibling subtree
// with the previous root.

func getAtPath(root *data.TSD, path data.Path) *data.TSD {
	if path.IsEmpty() {
		return root
	}
	name, rest := path.Head()
	return getAtPath(root.GetChild(name), rest)
}

func setAtPath(root *data.TSD, path data.Path, value *data.TSD) *data.TSD {
	if path.IsEmpty() {
		return value
	}
	name, rest := path.Head()
	return root.SetChild(name, setAtPath(root.GetChild(name), rest, value))
}

func mergeAtPath(root *data.TSD, path data.Path, changedChildren map[data.Name]*data.TSD) *data.TSD {
	node := getAtPath(root, path)
	return setAtPath(root, path, node.MergeChildren(changedChildren))
}

// related reports whether a change at b could affect a listener
// registered at a: either path is a prefix of the other.
func related(a, b data.Path) bool {
	return a.Contains(b) || b.Contains(a)
}
