package ax

import (
	"reflect"
	"testing"
)

func f(v float64) *float64 { return &v }

func sampleTree() *Node {
	return &Node{
		Role: "Group",
		Children: []*Node{
			{Role: "Button", Title: "Add"},
			{Role: "TextField"},
			{Role: "Group", Children: []*Node{
				{Role: "Button", Title: "Search"},
				{Role: "StaticText", Value: "Tokyo"},
			}},
		},
	}
}

func TestFindByRole(t *testing.T) {
	root := sampleTree()

	buttons := FindByRole(root, "Button")
	if len(buttons) != 2 {
		t.Fatalf("expected 2 buttons, got %d", len(buttons))
	}
	if buttons[0].Title != "Add" || buttons[1].Title != "Search" {
		t.Fatalf("traversal order wrong: %q, %q", buttons[0].Title, buttons[1].Title)
	}

	fields := FindByRole(root, "TextField")
	if len(fields) != 1 {
		t.Fatalf("expected 1 text field, got %d", len(fields))
	}
}

func TestFindByRoleDeterministic(t *testing.T) {
	root := sampleTree()
	first := FindByRole(root, "Button")
	second := FindByRole(root, "Button")
	if !reflect.DeepEqual(first, second) {
		t.Fatal("repeated traversal of an immutable tree differed")
	}
}

func TestFindByAnyRole(t *testing.T) {
	root := sampleTree()
	hits := FindByAnyRole(root, "TextField", "StaticText")
	if len(hits) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(hits))
	}
	if hits[0].Role != "TextField" || hits[1].Role != "StaticText" {
		t.Fatalf("traversal order wrong: %q, %q", hits[0].Role, hits[1].Role)
	}
}

func TestFindByPredicate(t *testing.T) {
	root := sampleTree()
	withText := FindByPredicate(root, func(n *Node) bool { return n.Text() != "" })
	if len(withText) != 3 {
		t.Fatalf("expected 3 nodes with text, got %d", len(withText))
	}
}

func TestCountByRole(t *testing.T) {
	counts := CountByRole(sampleTree())
	want := map[string]int{"Group": 2, "Button": 2, "TextField": 1, "StaticText": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Fatalf("want %v, got %v", want, counts)
	}
}

func TestClickPoint(t *testing.T) {
	t.Run("full geometry yields center", func(t *testing.T) {
		n := &Node{
			Role:     "TextField",
			Position: &Point{X: f(100), Y: f(50)},
			Size:     &Size{Width: f(200), Height: f(40)},
		}
		x, y, ok := ClickPoint(n)
		if !ok {
			t.Fatal("expected a click point")
		}
		if x != 200 || y != 70 {
			t.Fatalf("expected (200,70), got (%g,%g)", x, y)
		}
		if x < *n.Position.X || x > *n.Position.X+*n.Size.Width {
			t.Fatalf("center x %g outside rectangle", x)
		}
	})

	t.Run("missing position object", func(t *testing.T) {
		n := &Node{Role: "Button", Size: &Size{Width: f(10), Height: f(10)}}
		if _, _, ok := ClickPoint(n); ok {
			t.Fatal("expected no click point")
		}
	})

	t.Run("null component", func(t *testing.T) {
		n := &Node{
			Role:     "Button",
			Position: &Point{X: f(10), Y: nil},
			Size:     &Size{Width: f(10), Height: f(10)},
		}
		if _, _, ok := ClickPoint(n); ok {
			t.Fatal("expected no click point for null y")
		}
	})

	t.Run("nil node", func(t *testing.T) {
		if _, _, ok := ClickPoint(nil); ok {
			t.Fatal("expected no click point for nil node")
		}
	})
}

func TestWalkDepthCap(t *testing.T) {
	// Build a chain deeper than the cap; traversal must stop, not blow the stack.
	root := &Node{Role: "Group"}
	current := root
	for i := 0; i < MaxDepth+10; i++ {
		child := &Node{Role: "Group"}
		current.Children = []*Node{child}
		current = child
	}
	visited := 0
	Walk(root, func(*Node) { visited++ })
	if visited != MaxDepth+1 {
		t.Fatalf("expected traversal capped at %d nodes, visited %d", MaxDepth+1, visited)
	}
}

func TestNodeDefaults(t *testing.T) {
	n := &Node{Role: "Button"}
	if !n.IsEnabled() {
		t.Fatal("absent enabled flag should default to true")
	}
	if n.Text() != "" {
		t.Fatalf("empty node produced text %q", n.Text())
	}
}
