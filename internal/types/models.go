// internal/types/models.go
package types

import "encoding/json"

// BlockType distinguishes the two kinds of content blocks.
type BlockType string

const (
	BlockFigure    BlockType = "figure"
	BlockParagraph BlockType = "paragraph"
)

// ContentBlock is one immutable unit of authored content. Figures may carry a
// group_id that ties them to other figures on the same card; paragraphs stand
// alone.
type ContentBlock struct {
	Type         BlockType   `json:"type"`
	GroupID      string      `json:"group_id,omitempty"`
	GroupSeq     *int        `json:"group_seq,omitempty"`
	Title        string      `json:"title,omitempty"`
	Credit       string      `json:"credit,omitempty"`
	CreditTokens []string    `json:"credit_tokens,omitempty"`
	Image        *BlockImage `json:"image,omitempty"`
	Text         string      `json:"text,omitempty"`
}

// BlockImage references an asset by id; resolution to bytes or a URL happens
// at fill time.
type BlockImage struct {
	AssetID AssetID `json:"asset_id"`
}

// Seq returns the block's group sequence number, treating a missing value as 0.
func (b *ContentBlock) Seq() int {
	if b.GroupSeq == nil {
		return 0
	}
	return *b.GroupSeq
}

// HasImage reports whether the block carries a resolvable asset reference.
func (b *ContentBlock) HasImage() bool {
	return b.Image != nil && b.Image.AssetID != ""
}

// ContentDoc is the full content input file.
type ContentDoc struct {
	Doc struct {
		Title string `json:"title"`
		Date  string `json:"date"`
	} `json:"doc"`
	Blocks []ContentBlock  `json:"blocks"`
	Assets json.RawMessage `json:"assets,omitempty"`
}

// RemoteNode is a read-only projection of a node in the external scene graph.
// It is fetched on demand and never cached beyond the call that requested it:
// the remote tree can mutate between calls.
type RemoteNode struct {
	ID       NodeID       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Visible  *bool        `json:"visible,omitempty"`
	Children []RemoteNode `json:"children,omitempty"`

	AbsoluteBoundingBox *BoundingBox `json:"absoluteBoundingBox,omitempty"`
}

// IsVisible treats a missing visible flag as visible, matching the remote
// tool's own default.
func (n *RemoteNode) IsVisible() bool {
	return n.Visible == nil || *n.Visible
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VisibilityTarget is one semantic show/hide intent for a card instance,
// computed per fill from the group's derived attributes.
type VisibilityTarget struct {
	Name          string
	ShouldShow    bool
	FallbackNames []string
}
