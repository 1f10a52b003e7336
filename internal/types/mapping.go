// internal/types/mapping.go
package types

import "fmt"

// Mapping names the template's conventional anchors, slots, and toggles.
// It is authored alongside the template and consumed as plain values; the
// core never mutates it.
type Mapping struct {
	WorkAreaName  string `json:"work_area"`
	ContainerName string `json:"container"`
	ComponentKey  string `json:"component_key"`
	SeedAreaName  string `json:"seed_area"`

	TitleSlot  string `json:"title_slot"`
	SourceSlot string `json:"source_slot"`
	TextSlot   string `json:"text_slot"`

	ImageSlotPrefix string `json:"image_slot_prefix"`
	ImageGridName   string `json:"image_grid"`
	MaxImageSlots   int    `json:"max_image_slots"`

	TitleToggle     string `json:"title_toggle"`
	SourceToggle    string `json:"source_toggle"`
	ImageTogglePref string `json:"image_toggle_prefix"`

	// SourceFormat selects how credit text is rendered: "prefix" prepends
	// "Source: ", "plain" passes the credit through untouched.
	SourceFormat string `json:"source_format"`
}

// DefaultMapping returns the conventional template names used when the
// config file does not override them.
func DefaultMapping() Mapping {
	return Mapping{
		WorkAreaName:    "PosterArea",
		ContainerName:   "cardList",
		SeedAreaName:    "CardSeeds",
		TitleSlot:       "titleSlot",
		SourceSlot:      "sourceSlot",
		TextSlot:        "textSlot",
		ImageSlotPrefix: "imgSlot",
		ImageGridName:   "imageGrid",
		MaxImageSlots:   4,
		TitleToggle:     "showTitle",
		SourceToggle:    "showSource",
		ImageTogglePref: "showImg",
		SourceFormat:    "prefix",
	}
}

// ImageSlotName returns the conventional name of the k-th image slot (1-based).
func (m Mapping) ImageSlotName(k int) string {
	return fmt.Sprintf("%s%d", m.ImageSlotPrefix, k)
}

// ImageToggleName returns the semantic base name of the k-th image toggle.
func (m Mapping) ImageToggleName(k int) string {
	return fmt.Sprintf("%s%d", m.ImageTogglePref, k)
}
