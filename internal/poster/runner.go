// Package poster orchestrates one populate-and-export job: it walks the
// content flow, creates and fills a card per item, then finalizes the frame.
// Cards are processed strictly sequentially — the remote document is a
// single shared mutable resource with no transactional isolation.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/cards"
	"github.com/user/posterforge/internal/channel"
	"github.com/user/posterforge/internal/flow"
	"github.com/user/posterforge/internal/types"
)

// workAreaKinds are node types acceptable as the working area.
var workAreaKinds = []string{"FRAME", "SECTION", "COMPONENT", "INSTANCE"}

// ItemResult records one flow item's outcome.
type ItemResult struct {
	Index   int          `json:"index"`
	Kind    string       `json:"kind"`
	NodeID  types.NodeID `json:"node_id,omitempty"`
	Error   string       `json:"error,omitempty"`
	Skipped int          `json:"skipped_images,omitempty"`
}

// Summary is the per-job report: what was created, what failed, where the
// export landed.
type Summary struct {
	RunID      types.RunID  `json:"run_id"`
	Poster     string       `json:"poster"`
	Lang       string       `json:"lang"`
	DocTitle   string       `json:"doc_title,omitempty"`
	Created    int          `json:"created"`
	Failed     int          `json:"failed"`
	Items      []ItemResult `json:"items"`
	ExportPath string       `json:"export_path,omitempty"`
	ExportErr  string       `json:"export_error,omitempty"`
}

// Text renders the summary for console or notification output.
func (s *Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "poster %s [%s]: %d cards created, %d failed", s.Poster, s.Lang, s.Created, s.Failed)
	for _, it := range s.Items {
		if it.Error != "" {
			fmt.Fprintf(&b, "\n  item %d: %s", it.Index, it.Error)
		}
	}
	if s.ExportPath != "" {
		fmt.Fprintf(&b, "\nexported: %s", s.ExportPath)
	}
	if s.ExportErr != "" {
		fmt.Fprintf(&b, "\nexport failed: %s", s.ExportErr)
	}
	return b.String()
}

// Runner wires the card pipeline for one job.
type Runner struct {
	client    *canvas.Client
	resolver  *canvas.Resolver
	inst      *cards.Instantiator
	vis       *cards.VisibilityController
	filler    *cards.Filler
	finalizer *Finalizer
	mapping   types.Mapping
	retry     channel.RetryPolicy
	poster    string
}

func NewRunner(client *canvas.Client, resolver *canvas.Resolver, inst *cards.Instantiator, vis *cards.VisibilityController, filler *cards.Filler, finalizer *Finalizer, mapping types.Mapping, retry channel.RetryPolicy, posterName string) *Runner {
	return &Runner{
		client:    client,
		resolver:  resolver,
		inst:      inst,
		vis:       vis,
		filler:    filler,
		finalizer: finalizer,
		mapping:   mapping,
		retry:     retry,
		poster:    posterName,
	}
}

// Run populates one language version of the poster and exports it. Only
// setup failures (document unreachable, work area missing) abort the job;
// per-item failures are recorded and the run continues.
func (r *Runner) Run(ctx context.Context, doc *types.ContentDoc, lang string, index int) (*Summary, error) {
	summary := &Summary{
		RunID:    types.NewRunID(),
		Poster:   r.poster,
		Lang:     lang,
		DocTitle: doc.Doc.Title,
	}

	// Setup phase: the document must answer before anything else is tried.
	var page *types.RemoteNode
	err := r.retry.Execute(ctx, func() error {
		var err error
		page, err = r.client.DocumentInfo(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("document not reachable after %d attempts: %w (is the canvas plugin running?)",
			r.retry.MaxAttempts, err)
	}
	pageID := page.ID
	if pageID == "" {
		return nil, fmt.Errorf("document info carried no page id")
	}

	workArea, ok := r.resolver.FindWorkArea(ctx, pageID, r.mapping.WorkAreaName, workAreaKinds)
	if !ok {
		return nil, fmt.Errorf("work area %q not found and no usable selection", r.mapping.WorkAreaName)
	}

	container := workArea
	if id, ok := r.resolver.Find(ctx, workArea, r.mapping.ContainerName, nil); ok {
		container = id
	} else {
		slog.Info("container not found, appending cards into work area",
			"container", r.mapping.ContainerName)
	}

	items := flow.Build(doc.Blocks)
	for i, item := range items {
		result := r.processItem(ctx, pageID, container, i, item)
		summary.Items = append(summary.Items, result)
		if result.Error != "" {
			summary.Failed++
			slog.Error("card failed", "index", i, "error", result.Error)
		} else {
			summary.Created++
			slog.Info("card created", "index", i, "node_id", result.NodeID, "kind", result.Kind)
		}
	}

	outName := fmt.Sprintf("%s_%s_%02d.%s", r.poster, lang, index, strings.ToLower(r.finalizer.format))
	path, err := r.finalizer.Finalize(ctx, workArea, outName)
	if err != nil {
		// Export failure does not abort remaining posters.
		summary.ExportErr = err.Error()
		slog.Error("export failed", "poster", r.poster, "lang", lang, "error", err)
	} else {
		summary.ExportPath = path
	}

	return summary, nil
}

// processItem runs the full per-card pipeline for one flow item. One bad
// card does not abort the run.
func (r *Runner) processItem(ctx context.Context, pageID, container types.NodeID, index int, item flow.Item) ItemResult {
	result := ItemResult{Index: index, Kind: string(item.Kind)}

	cardID, err := r.inst.Create(ctx, pageID, container)
	if err != nil {
		result.Error = fmt.Sprintf("instantiate: %v", err)
		return result
	}
	result.NodeID = cardID

	switch item.Kind {
	case flow.KindFigureGroup:
		g := item.Group
		attrs := cards.Attrs{
			HasTitle:   g.HasTitle(),
			HasSource:  g.HasSource(),
			ImageCount: g.ImageCount(),
		}
		if attrs.HasTitle {
			r.setSlotText(ctx, cardID, r.mapping.TitleSlot, flow.RenderText(g.Title()))
		}
		if attrs.HasSource {
			r.setSlotText(ctx, cardID, r.mapping.SourceSlot, r.formatSource(g.Credit()))
		}
		r.vis.Apply(ctx, cardID, attrs)
		report := r.filler.Fill(ctx, cardID, g.AssetIDs())
		result.Skipped = len(report.Skipped)

	case flow.KindStandalone:
		r.setSlotText(ctx, cardID, r.mapping.TextSlot, flow.RenderText(item.Block.Text))
		r.vis.Apply(ctx, cardID, cards.Attrs{})
	}

	return result
}

// setSlotText writes text into a named slot. A resolution miss means the
// feature is unavailable for this card; it is skipped, not an error.
func (r *Runner) setSlotText(ctx context.Context, cardID types.NodeID, slotName, text string) {
	if slotName == "" || text == "" {
		return
	}
	slotID, ok := r.resolver.Find(ctx, cardID, slotName, []string{"TEXT"})
	if !ok {
		slog.Warn("text slot not found, skipping", "slot", slotName, "card", cardID)
		return
	}
	if err := r.client.SetText(ctx, slotID, text); err != nil {
		slog.Warn("set text failed", "slot", slotName, "card", cardID, "error", err)
	}
}

func (r *Runner) formatSource(credit string) string {
	if credit == "" {
		return ""
	}
	if r.mapping.SourceFormat == "plain" {
		return credit
	}
	return "Source: " + credit
}
