package dtree

import "strings"

// PathOf returns the canonical printed path of n, e.g. "/soc/bus/dev".
// The duplicate detector and the symbol rewriter compare nodes by this
// printed form rather than pointer identity, because a
// fragment-synthesized node and a live-tree node may coexist at the same
// path mid-build. A root named "" prints as "/"; a parentless node with a
// non-empty name contributes that name as the first path component.
func PathOf(n *Node) string {
	if n == nil {
		return ""
	}
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Parent() == nil && cur.Name() == "" {
			break
		}
		parts = append(parts, cur.Name())
	}
	if len(parts) == 0 {
		return "/"
	}
	// parts were collected leaf-to-root; reverse them.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// FindByPath resolves a "/"-separated path starting at root (root itself
// corresponds to ""), returning nil on miss. Leading and trailing slashes
// are ignored, so "/bus/dev" and "bus/dev" resolve to the same node.
func FindByPath(root *Node, path string) *Node {
	path = strings.Trim(path, "/")
	if path == "" {
		return root
	}
	cur := root
	for _, seg := range strings.Split(path, "/") {
		if cur == nil {
			return nil
		}
		cur = cur.ChildByName(seg)
	}
	return cur
}
