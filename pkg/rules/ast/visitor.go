package ast

import "strconv"

// WalkFunc is called for every node in pre-order. Path is the dot-joined chain of
// child indices from the root, whose own path is "0".
type WalkFunc func(n Node, path string, depth int) error

// Walk traverses the tree rooted at n and stops at the first error.
func Walk(n Node, fn WalkFunc) error {
	return walk(n, "0", 0, fn)
}

func walk(n Node, path string, depth int, fn WalkFunc) error {
	if err := fn(n, path, depth); err != nil {
		return err
	}
	for i, child := range Children(n) {
		if err := walk(child, ChildPath(path, i), depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// ChildPath returns the path of the i-th child of the node at parent.
func ChildPath(parent string, i int) string {
	return parent + "." + strconv.Itoa(i)
}

// Evaluators returns every leaf in the tree in pre-order.
func Evaluators(n Node) []*EvaluatorNode {
	var leaves []*EvaluatorNode
	_ = Walk(n, func(node Node, _ string, _ int) error {
		if leaf, ok := node.(*EvaluatorNode); ok {
			leaves = append(leaves, leaf)
		}
		return nil
	})
	return leaves
}
