// internal/cards/images.go
package cards

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

// DefaultInlineInterval is the minimum spacing between inline-data image
// transfers. Inline fills ship the whole image through the channel, so they
// are throttled; URL fills are not.
const DefaultInlineInterval = 2 * time.Second

// shapeKinds are the second-priority fill candidates inside an image grid.
var shapeKinds = map[string]bool{
	"RECTANGLE": true,
	"VECTOR":    true,
	"ELLIPSE":   true,
	"POLYGON":   true,
	"STAR":      true,
}

// AssetSource reads a local asset's bytes and mime type.
type AssetSource interface {
	Read(id types.AssetID) ([]byte, string, error)
}

// FillReport summarizes one card's image fill.
type FillReport struct {
	Filled  int
	Skipped []types.AssetID
}

// Filler assigns assets to fillable target nodes inside a card, best-effort
// per image.
type Filler struct {
	client   *canvas.Client
	resolver *canvas.Resolver
	assets   AssetSource
	baseURL  string
	mapping  types.Mapping
	limiter  *rate.Limiter
}

func NewFiller(client *canvas.Client, resolver *canvas.Resolver, assets AssetSource, baseURL string, mapping types.Mapping, inlineInterval time.Duration) *Filler {
	if inlineInterval <= 0 {
		inlineInterval = DefaultInlineInterval
	}
	return &Filler{
		client:   client,
		resolver: resolver,
		assets:   assets,
		baseURL:  baseURL,
		mapping:  mapping,
		limiter:  rate.NewLimiter(rate.Every(inlineInterval), 1),
	}
}

// Fill discovers fill targets under cardID and assigns assets to them in
// order. A target is consumed on first success and never reused; an asset
// with no remaining workable target is reported skipped, not silently
// dropped. Nothing here aborts the card.
func (f *Filler) Fill(ctx context.Context, cardID types.NodeID, assetIDs []types.AssetID) FillReport {
	var report FillReport
	if len(assetIDs) == 0 {
		return report
	}
	targets := f.discoverTargets(ctx, cardID, len(assetIDs))

	used := make(map[types.NodeID]bool)
	for _, asset := range assetIDs {
		filled := false
		for _, target := range targets {
			if used[target] {
				continue
			}
			if err := f.fillOne(ctx, target, asset); err != nil {
				slog.Warn("image fill attempt failed", "asset_id", asset, "node_id", target, "error", err)
				continue
			}
			used[target] = true
			filled = true
			report.Filled++
			break
		}
		if !filled {
			slog.Warn("asset skipped: no remaining fill target", "asset_id", asset, "card", cardID)
			report.Skipped = append(report.Skipped, asset)
		}
	}
	return report
}

// discoverTargets looks for the conventionally-named slots imgSlot1..N in
// priority order; when fewer visible slots than needed are found it scans
// the named image grid, collecting frame/group nodes first and shape nodes
// second, in traversal order, until enough candidates exist or the subtree
// is exhausted.
func (f *Filler) discoverTargets(ctx context.Context, cardID types.NodeID, need int) []types.NodeID {
	var targets []types.NodeID
	seen := make(map[types.NodeID]bool)

	for k := 1; k <= f.mapping.MaxImageSlots && len(targets) < need; k++ {
		id, ok := f.resolver.Find(ctx, cardID, f.mapping.ImageSlotName(k), nil)
		if !ok {
			continue
		}
		info, err := f.client.NodeInfo(ctx, id)
		if err != nil || !info.IsVisible() {
			continue
		}
		targets = append(targets, id)
		seen[id] = true
	}
	if len(targets) >= need {
		return targets
	}

	gridID, ok := f.resolver.Find(ctx, cardID, f.mapping.ImageGridName, nil)
	if !ok {
		return targets
	}
	var frames, shapes []types.NodeID
	f.resolver.Walk(ctx, gridID, canvas.DefaultMaxDepth, func(n *types.RemoteNode, depth int) bool {
		if seen[n.ID] || !n.IsVisible() {
			return true
		}
		switch {
		case n.Type == "FRAME" || n.Type == "GROUP":
			frames = append(frames, n.ID)
		case shapeKinds[n.Type]:
			shapes = append(shapes, n.ID)
		}
		// Frames outrank shapes, so enough frames ends the scan early.
		return len(targets)+len(frames) < need
	})
	for _, id := range append(frames, shapes...) {
		if len(targets) >= need {
			break
		}
		targets = append(targets, id)
	}
	return targets
}

// fillOne tries the cheap remote-URL path first, then reads the asset
// locally and ships it inline, throttled to the minimum transfer interval.
func (f *Filler) fillOne(ctx context.Context, target types.NodeID, asset types.AssetID) error {
	if f.baseURL != "" {
		err := f.client.SetImageURL(ctx, target, f.assetURL(asset))
		if err == nil {
			return nil
		}
		slog.Debug("url fill failed, falling back to inline data", "asset_id", asset, "error", err)
	}

	if f.assets == nil {
		return fmt.Errorf("asset %s: no local asset source configured", asset)
	}
	data, mimeType, err := f.assets.Read(asset)
	if err != nil {
		return fmt.Errorf("read asset %s: %w", asset, err)
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	if err := f.client.SetImageData(ctx, target, encoded, mimeType); err != nil {
		return fmt.Errorf("inline fill: %w", err)
	}
	return nil
}

func (f *Filler) assetURL(asset types.AssetID) string {
	return f.baseURL + "/assets/" + url.PathEscape(string(asset))
}
