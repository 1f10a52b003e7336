// Package cards populates template card instances: creating them, toggling
// their visibility properties, and filling their image slots.
package cards

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

// Instantiator creates one card instance per flow item. Two strategies, no
// re-entry: direct component instantiation when a component key is
// configured, otherwise (or when the direct response carries no node id)
// cloning a seed instance kept under a conventionally-named off-canvas area.
type Instantiator struct {
	client   *canvas.Client
	resolver *canvas.Resolver
	mapping  types.Mapping
}

func NewInstantiator(client *canvas.Client, resolver *canvas.Resolver, mapping types.Mapping) *Instantiator {
	return &Instantiator{client: client, resolver: resolver, mapping: mapping}
}

// Create returns the node id of a fresh card appended to container. pageID
// is the scope searched for the seed area. An error means neither strategy
// yielded a node id; the caller records it and moves to the next item.
func (ins *Instantiator) Create(ctx context.Context, pageID, containerID types.NodeID) (types.NodeID, error) {
	if key := ins.mapping.ComponentKey; key != "" {
		id, err := ins.client.CreateInstance(ctx, key, containerID)
		if err == nil && id != "" {
			return id, nil
		}
		if err != nil {
			slog.Warn("direct instantiation failed, trying seed clone", "component_key", key, "error", err)
		} else {
			slog.Warn("direct instantiation returned no node id, trying seed clone", "component_key", key)
		}
	}
	return ins.cloneSeed(ctx, pageID, containerID)
}

func (ins *Instantiator) cloneSeed(ctx context.Context, pageID, containerID types.NodeID) (types.NodeID, error) {
	areaID, ok := ins.resolver.Find(ctx, pageID, ins.mapping.SeedAreaName,
		[]string{"FRAME", "GROUP", "SECTION"})
	if !ok {
		return "", fmt.Errorf("seed area %q not found", ins.mapping.SeedAreaName)
	}
	area, err := ins.client.NodeInfo(ctx, areaID)
	if err != nil {
		return "", fmt.Errorf("fetch seed area: %w", err)
	}
	seedID := pickSeed(area)
	if seedID == "" {
		return "", fmt.Errorf("seed area %q holds no instance to clone", ins.mapping.SeedAreaName)
	}
	id, err := ins.client.CloneNode(ctx, seedID, containerID)
	if err != nil {
		return "", fmt.Errorf("clone seed: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("clone seed: response carried no node id")
	}
	return id, nil
}

// pickSeed prefers a proper instance but settles for any child so a
// sloppily-authored seed area still works.
func pickSeed(area *types.RemoteNode) types.NodeID {
	for i := range area.Children {
		if area.Children[i].Type == "INSTANCE" {
			return area.Children[i].ID
		}
	}
	if len(area.Children) > 0 {
		return area.Children[0].ID
	}
	return ""
}
