// internal/cards/visibility.go
package cards

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

// Attrs are the derived attributes of one card's content group.
type Attrs struct {
	HasTitle   bool
	HasSource  bool
	ImageCount int
}

// BuildTargets maps the derived attributes onto semantic visibility intents:
// image slot k shows iff ImageCount >= k, title iff HasTitle, source iff
// HasSource. Pure; ephemeral per fill.
func BuildTargets(a Attrs, m types.Mapping) []types.VisibilityTarget {
	targets := []types.VisibilityTarget{
		{Name: m.TitleToggle, ShouldShow: a.HasTitle, FallbackNames: []string{m.TitleSlot}},
		{Name: m.SourceToggle, ShouldShow: a.HasSource, FallbackNames: []string{m.SourceSlot}},
	}
	for k := 1; k <= m.MaxImageSlots; k++ {
		targets = append(targets, types.VisibilityTarget{
			Name:          m.ImageToggleName(k),
			ShouldShow:    a.ImageCount >= k,
			FallbackNames: []string{m.ImageSlotName(k)},
		})
	}
	return targets
}

// VisibilityController applies visibility intents to an instance, degrading
// from the dynamic property API to hide-by-name, then to per-node toggles.
type VisibilityController struct {
	client   *canvas.Client
	resolver *canvas.Resolver
	mapping  types.Mapping
}

func NewVisibilityController(client *canvas.Client, resolver *canvas.Resolver, mapping types.Mapping) *VisibilityController {
	return &VisibilityController{client: client, resolver: resolver, mapping: mapping}
}

// Apply resolves the card's visibility targets and mutates the instance.
// Whatever branch ran, a layout flush follows so auto-sizing containers
// settle before later reads observe them.
func (v *VisibilityController) Apply(ctx context.Context, instanceID types.NodeID, a Attrs) {
	targets := BuildTargets(a, v.mapping)

	if err := v.applyProperties(ctx, instanceID, targets); err != nil {
		slog.Warn("property API failed, hiding by name", "node_id", instanceID, "error", err)
		v.hideByName(ctx, instanceID, hideNames(targets))
	}

	if err := v.client.FlushLayout(ctx); err != nil {
		slog.Debug("layout flush failed", "error", err)
	}
}

// applyProperties matches each target against the instance's dynamic boolean
// property keys and issues one bulk assignment.
func (v *VisibilityController) applyProperties(ctx context.Context, instanceID types.NodeID, targets []types.VisibilityTarget) error {
	props, err := v.client.InstanceProperties(ctx, instanceID)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(props))
	for k, p := range props {
		if p.Type == "" || p.Type == "BOOLEAN" {
			keys = append(keys, k)
		}
	}
	// Map iteration order is random; sort so substring matches are stable.
	sort.Strings(keys)

	payload := make(map[string]any)
	for _, t := range targets {
		if key, ok := canvas.MatchKey(t.Name, keys); ok {
			payload[key] = t.ShouldShow
		}
	}
	if len(payload) == 0 {
		return fmt.Errorf("no visibility property keys matched on %s", instanceID)
	}
	return v.client.SetProperties(ctx, instanceID, payload)
}

// hideNames collects the fallback node names of every target that should be
// hidden — whether or not its property key was found.
func hideNames(targets []types.VisibilityTarget) []string {
	var names []string
	for _, t := range targets {
		if !t.ShouldShow {
			names = append(names, t.FallbackNames...)
		}
	}
	return names
}

// hideByName resolves each name under the instance and hides the matches in
// one bulk call; if the bulk command fails too, each node is hidden
// individually as a last resort, and only that last resort's failures are
// ignored (logged).
func (v *VisibilityController) hideByName(ctx context.Context, instanceID types.NodeID, names []string) {
	var ids []types.NodeID
	for _, name := range names {
		if id, ok := v.resolver.Find(ctx, instanceID, name, nil); ok {
			ids = append(ids, id)
		} else {
			slog.Debug("hide fallback: node not found", "name", name, "node_id", instanceID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if err := v.client.SetNodesVisible(ctx, ids, false); err == nil {
		return
	}
	for _, id := range ids {
		if err := v.client.SetVisible(ctx, id, false); err != nil {
			slog.Warn("per-node hide failed", "node_id", id, "error", err)
		}
	}
}
