// internal/canvas/resolver.go
package canvas

import (
	"context"
	"log/slog"

	"github.com/user/posterforge/internal/types"
)

// DefaultMaxDepth caps the deep scan so a huge subtree cannot stall the run.
const DefaultMaxDepth = 6

// containerKinds are node types worth descending into during a deep scan.
var containerKinds = map[string]bool{
	"DOCUMENT":      true,
	"PAGE":          true,
	"FRAME":         true,
	"GROUP":         true,
	"SECTION":       true,
	"COMPONENT":     true,
	"COMPONENT_SET": true,
	"INSTANCE":      true,
}

// Resolver locates nodes by conventional name. A miss is not an error:
// callers treat it as "feature unavailable for this card" and skip.
type Resolver struct {
	client   *Client
	MaxDepth int
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client, MaxDepth: DefaultMaxDepth}
}

// FindChild scans only the immediate children of root for a normalized-name
// match (tier 1).
func (r *Resolver) FindChild(ctx context.Context, rootID types.NodeID, name string) (types.NodeID, bool) {
	info, err := r.client.NodeInfo(ctx, rootID)
	if err != nil {
		slog.Debug("find child: node fetch failed", "root", rootID, "error", err)
		return "", false
	}
	want := NormalizeName(name)
	for i := range info.Children {
		if NormalizeName(info.Children[i].Name) == want {
			return info.Children[i].ID, true
		}
	}
	return "", false
}

// Find locates a descendant by name: tier 1 child scan first, then a
// bounded-depth breadth-first scan (tier 2) restricted to the given node
// kinds. An empty kinds slice accepts any kind.
func (r *Resolver) Find(ctx context.Context, rootID types.NodeID, name string, kinds []string) (types.NodeID, bool) {
	info, err := r.client.NodeInfo(ctx, rootID)
	if err != nil {
		slog.Debug("find: root fetch failed", "root", rootID, "error", err)
		return "", false
	}
	want := NormalizeName(name)
	for i := range info.Children {
		if NormalizeName(info.Children[i].Name) == want {
			return info.Children[i].ID, true
		}
	}
	return r.deepFind(ctx, info.Children, want, kinds)
}

// deepFind is the tier-2 scan: BFS over the subtree, depth capped, matching
// by normalized name against acceptable kinds only.
func (r *Resolver) deepFind(ctx context.Context, level []types.RemoteNode, want string, kinds []string) (types.NodeID, bool) {
	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	for depth := 1; depth < maxDepth && len(level) > 0; depth++ {
		var next []types.RemoteNode
		for i := range level {
			n := &level[i]
			if !containerKinds[n.Type] {
				continue
			}
			info, err := r.client.NodeInfo(ctx, n.ID)
			if err != nil {
				continue
			}
			for j := range info.Children {
				child := &info.Children[j]
				if kindAccepted(kinds, child.Type) && NormalizeName(child.Name) == want {
					return child.ID, true
				}
			}
			next = append(next, info.Children...)
		}
		level = next
	}
	return "", false
}

// FindWorkArea locates the top-level working area. On a total miss it falls
// back to the user's active selection (tier 3), accepting the first node of
// an acceptable kind: authored templates do not always follow naming
// conventions, and failing the whole job over one unnamed frame is worse
// than an operator-visible fallback.
func (r *Resolver) FindWorkArea(ctx context.Context, rootID types.NodeID, name string, kinds []string) (types.NodeID, bool) {
	if id, ok := r.Find(ctx, rootID, name, kinds); ok {
		return id, true
	}
	selection, err := r.client.Selection(ctx)
	if err != nil {
		slog.Warn("work area fallback: selection fetch failed", "error", err)
		return "", false
	}
	for i := range selection {
		if kindAccepted(kinds, selection[i].Type) {
			slog.Warn("work area not found by name, using current selection",
				"name", name, "node_id", selection[i].ID, "node_name", selection[i].Name)
			return selection[i].ID, true
		}
	}
	return "", false
}

// Walk visits the subtree under root breadth-first in traversal order, depth
// capped. visit returning false stops the walk.
func (r *Resolver) Walk(ctx context.Context, rootID types.NodeID, maxDepth int, visit func(n *types.RemoteNode, depth int) bool) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	info, err := r.client.NodeInfo(ctx, rootID)
	if err != nil {
		return
	}
	level := info.Children
	for depth := 1; depth <= maxDepth && len(level) > 0; depth++ {
		var next []types.RemoteNode
		for i := range level {
			n := &level[i]
			if !visit(n, depth) {
				return
			}
			if !containerKinds[n.Type] || depth == maxDepth {
				continue
			}
			child, err := r.client.NodeInfo(ctx, n.ID)
			if err != nil {
				continue
			}
			next = append(next, child.Children...)
		}
		level = next
	}
}

func kindAccepted(kinds []string, kind string) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
