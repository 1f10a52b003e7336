// Package flow turns a flat, possibly-unordered content block list into the
// ordered sequence of render items the card loop consumes.
package flow

import (
	"sort"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/user/posterforge/internal/types"
)

// ItemKind tags the two flow item variants.
type ItemKind string

const (
	KindFigureGroup ItemKind = "figure_group"
	KindStandalone  ItemKind = "standalone_paragraph"
)

// Group is a set of figure blocks sharing a group_id, sorted ascending by
// group_seq (missing treated as 0, sort is stable).
type Group struct {
	ID     string
	Blocks []types.ContentBlock
}

// HasTitle reports whether any block in the group carries a title.
func (g *Group) HasTitle() bool {
	for i := range g.Blocks {
		if g.Blocks[i].Title != "" {
			return true
		}
	}
	return false
}

// HasSource reports whether any block carries credit text or credit tokens.
func (g *Group) HasSource() bool {
	for i := range g.Blocks {
		if g.Blocks[i].Credit != "" || len(g.Blocks[i].CreditTokens) > 0 {
			return true
		}
	}
	return false
}

// ImageCount counts the blocks with a resolvable asset reference.
func (g *Group) ImageCount() int {
	n := 0
	for i := range g.Blocks {
		if g.Blocks[i].HasImage() {
			n++
		}
	}
	return n
}

// AssetIDs returns the group's asset references in block order.
func (g *Group) AssetIDs() []types.AssetID {
	var ids []types.AssetID
	for i := range g.Blocks {
		if g.Blocks[i].HasImage() {
			ids = append(ids, g.Blocks[i].Image.AssetID)
		}
	}
	return ids
}

// Title returns the first non-empty title in group order.
func (g *Group) Title() string {
	for i := range g.Blocks {
		if t := g.Blocks[i].Title; t != "" {
			return t
		}
	}
	return ""
}

// Credit returns the first non-empty credit, preferring the joined token
// form when present.
func (g *Group) Credit() string {
	for i := range g.Blocks {
		if toks := g.Blocks[i].CreditTokens; len(toks) > 0 {
			return strings.Join(toks, ", ")
		}
		if c := g.Blocks[i].Credit; c != "" {
			return c
		}
	}
	return ""
}

// Item is one unit of the render flow: either a figure group or a standalone
// paragraph. Exactly one of Group/Block is set, per Kind.
type Item struct {
	Kind  ItemKind
	Group *Group
	Block *types.ContentBlock
}

// Build produces the ordered flow from a flat block list. Order is invariant:
// a group contributes exactly one item at the position of its first
// encountered block; standalone paragraphs keep their original position.
func Build(blocks []types.ContentBlock) []Item {
	var items []Item
	groups := make(map[string]*Group)
	soloSeq := 0

	for i := range blocks {
		b := blocks[i]
		switch b.Type {
		case types.BlockParagraph:
			blk := b
			items = append(items, Item{Kind: KindStandalone, Block: &blk})
		case types.BlockFigure:
			id := b.GroupID
			if id == "" {
				// Ungrouped figure: a group of one, keyed so it never
				// collides with an authored group_id.
				id = "\x00solo:" + strconv.Itoa(soloSeq)
				soloSeq++
			}
			g, ok := groups[id]
			if !ok {
				g = &Group{ID: b.GroupID}
				groups[id] = g
				items = append(items, Item{Kind: KindFigureGroup, Group: g})
			}
			g.Blocks = append(g.Blocks, b)
		default:
			// Unknown block types are dropped; the authoring pipeline owns them.
		}
	}

	for _, it := range items {
		if it.Kind == KindFigureGroup {
			sortGroup(it.Group)
		}
	}
	return items
}

// sortGroup orders blocks ascending by group_seq. The sort is stable so
// re-running on the same input always yields the same internal order.
func sortGroup(g *Group) {
	sort.SliceStable(g.Blocks, func(i, j int) bool {
		return g.Blocks[i].Seq() < g.Blocks[j].Seq()
	})
}

// RenderText normalizes a paragraph's text for a plain text slot. Authoring
// pipelines sometimes emit HTML fragments; those are converted to markdown
// text, anything else passes through unchanged.
func RenderText(text string) string {
	if !looksLikeHTML(text) {
		return text
	}
	md, err := htmltomarkdown.ConvertString(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(md)
}

func looksLikeHTML(s string) bool {
	open := strings.IndexByte(s, '<')
	return open >= 0 && strings.IndexByte(s[open:], '>') > 0
}
