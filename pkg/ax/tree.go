// Package ax models the accessibility tree a UI-automation daemon reports for
// an application and provides read-only analysis over it: role search,
// content classification and click-point computation. Trees are treated as
// immutable snapshots; nothing here mutates a Node.
package ax

import (
	"strings"
	"time"
)

// Point is a screen coordinate. Components arrive independently and either
// may be null even when the object itself is present.
type Point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Size is an element extent with the same nullability as Point.
type Size struct {
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// Node is one element of an accessibility tree. Role follows the daemon's
// taxonomy ("Button", "TextField", "SearchField", "StaticText", ...). All
// text fields are optional; absent means empty. Unknown wire fields are
// ignored for forward compatibility.
type Node struct {
	Role        string  `json:"role"`
	Title       string  `json:"title,omitempty"`
	Value       string  `json:"value,omitempty"`
	Description string  `json:"description,omitempty"`
	Position    *Point  `json:"position,omitempty"`
	Size        *Size   `json:"size,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	Children    []*Node `json:"children,omitempty"`
}

// IsEnabled reports the enabled flag, defaulting to true when absent.
func (n *Node) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// Text concatenates title, value and description into one content string,
// treating absent fields as empty, and trims the result.
func (n *Node) Text() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{n.Title, n.Value, n.Description} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Snapshot is one capture of an application's UI tree. It is created per RPC
// call, immutable once built, and never cached across calls: the live UI may
// have changed between successive captures.
type Snapshot struct {
	App        string    `json:"applicationIdentifier"`
	CapturedAt time.Time `json:"capturedAt"`
	Tree       *Node     `json:"tree"`
}
