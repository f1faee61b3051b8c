package ax

// MaxDepth caps traversal depth. The daemon promises a finite acyclic tree,
// but a malformed payload must not take the process down with it.
const MaxDepth = 10000

// Predicate tests one node during traversal.
type Predicate func(*Node) bool

// FindByRole collects every node whose role equals role, in pre-order
// traversal order (parents before children, siblings in child order).
func FindByRole(root *Node, role string) []*Node {
	return FindByPredicate(root, func(n *Node) bool { return n.Role == role })
}

// FindByAnyRole collects nodes whose role is any of roles, same order.
func FindByAnyRole(root *Node, roles ...string) []*Node {
	set := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return FindByPredicate(root, func(n *Node) bool {
		_, ok := set[n.Role]
		return ok
	})
}

// FindByPredicate collects every node matching pred, in pre-order traversal
// order. Deterministic and restartable: the same immutable tree yields the
// same ordered result every time.
func FindByPredicate(root *Node, pred Predicate) []*Node {
	var out []*Node
	walk(root, 0, func(n *Node) {
		if pred(n) {
			out = append(out, n)
		}
	})
	return out
}

// Walk visits every node in pre-order, bounded by MaxDepth.
func Walk(root *Node, visit func(*Node)) {
	walk(root, 0, visit)
}

// CountByRole produces a role frequency table in a single traversal. Used
// for diagnostic summaries of what a snapshot contains.
func CountByRole(root *Node) map[string]int {
	counts := make(map[string]int)
	walk(root, 0, func(n *Node) {
		counts[n.Role]++
	})
	return counts
}

// ClickPoint returns the center of the node's rectangle. ok is false whenever
// any of the four geometry components is absent or null; that is a common,
// expected case and the caller supplies its own fallback estimate.
func ClickPoint(n *Node) (x, y float64, ok bool) {
	if n == nil || n.Position == nil || n.Size == nil {
		return 0, 0, false
	}
	if n.Position.X == nil || n.Position.Y == nil || n.Size.Width == nil || n.Size.Height == nil {
		return 0, 0, false
	}
	return *n.Position.X + *n.Size.Width/2, *n.Position.Y + *n.Size.Height/2, true
}

func walk(n *Node, depth int, visit func(*Node)) {
	if n == nil || depth > MaxDepth {
		return
	}
	visit(n)
	for _, child := range n.Children {
		walk(child, depth+1, visit)
	}
}
