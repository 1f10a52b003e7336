package cards

import (
	"context"
	"errors"
	"testing"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

func boolProp() canvas.PropertyValue {
	return canvas.PropertyValue{Type: "BOOLEAN"}
}

func cardProperties() map[string]canvas.PropertyValue {
	return map[string]canvas.PropertyValue{
		"showTitle#402:1":  boolProp(),
		"showSource#402:2": boolProp(),
		"showImg1#402:3":   boolProp(),
		"showImg2#402:4":   boolProp(),
		"showImg3#402:5":   boolProp(),
		"showImg4#402:6":   boolProp(),
	}
}

func newController(f *fakeCanvas) *VisibilityController {
	client := canvas.NewClient(f)
	return NewVisibilityController(client, canvas.NewResolver(client), types.DefaultMapping())
}

// buildCardTree creates a card instance with the conventional slot children.
func buildCardTree(f *fakeCanvas) {
	f.add("card", "card", "INSTANCE")
	f.add("title", "titleSlot", "TEXT")
	f.add("source", "sourceSlot", "TEXT")
	for i, id := range []types.NodeID{"s1", "s2", "s3", "s4"} {
		f.add(id, types.DefaultMapping().ImageSlotName(i+1), "RECTANGLE")
	}
	f.link("card", "title", "source", "s1", "s2", "s3", "s4")
}

func TestBuildTargets(t *testing.T) {
	targets := BuildTargets(Attrs{HasTitle: true, HasSource: false, ImageCount: 2}, types.DefaultMapping())
	if len(targets) != 6 {
		t.Fatalf("expected 6 targets, got %d", len(targets))
	}
	byName := map[string]bool{}
	for _, tg := range targets {
		byName[tg.Name] = tg.ShouldShow
	}
	want := map[string]bool{
		"showTitle":  true,
		"showSource": false,
		"showImg1":   true,
		"showImg2":   true,
		"showImg3":   false,
		"showImg4":   false,
	}
	for name, show := range want {
		if byName[name] != show {
			t.Errorf("target %s: shouldShow=%v, want %v", name, byName[name], show)
		}
	}
}

func TestApplyVisibilityBulkSuccess(t *testing.T) {
	f := newFakeCanvas()
	buildCardTree(f)
	f.properties = cardProperties()

	newController(f).Apply(context.Background(), "card", Attrs{HasTitle: true, HasSource: true, ImageCount: 1})

	sets := f.callsFor("set_instance_properties")
	if len(sets) != 1 {
		t.Fatalf("expected one bulk property call, got %d", len(sets))
	}
	props := sets[0].params["properties"].(map[string]any)
	if props["showImg1#402:3"] != true || props["showImg2#402:4"] != false {
		t.Errorf("unexpected bulk payload %v", props)
	}
	if len(f.callsFor("set_nodes_visible")) != 0 {
		t.Error("bulk success must not trigger hide fallback")
	}
	if len(f.callsFor("flush_layout")) != 1 {
		t.Error("layout flush must follow the mutation")
	}
}

// Property API fails for a card needing one image, so
// slots 2-4 must be hidden by name in exactly one bulk hide call.
func TestApplyVisibilityHideFallback(t *testing.T) {
	f := newFakeCanvas()
	buildCardTree(f)
	f.properties = cardProperties()
	f.setPropsSoft = true

	newController(f).Apply(context.Background(), "card", Attrs{HasTitle: true, HasSource: true, ImageCount: 1})

	hides := f.callsFor("set_nodes_visible")
	if len(hides) != 1 {
		t.Fatalf("expected exactly one bulk hide call, got %d", len(hides))
	}
	ids := hides[0].params["nodeIds"].([]any)
	if len(ids) != 3 {
		t.Fatalf("expected the three extra slot ids, got %v", ids)
	}
	wantIDs := map[string]bool{"s2": true, "s3": true, "s4": true}
	for _, id := range ids {
		if !wantIDs[id.(string)] {
			t.Errorf("unexpected hidden node %v", id)
		}
	}
	if hides[0].params["visible"] != false {
		t.Error("bulk call must hide, not show")
	}
	if len(f.callsFor("set_node_visible")) != 0 {
		t.Error("bulk hide succeeded; per-node fallback must not fire")
	}
	if len(f.callsFor("flush_layout")) != 1 {
		t.Error("layout flush must follow the fallback branch too")
	}
}

func TestApplyVisibilityPerNodeLastResort(t *testing.T) {
	f := newFakeCanvas()
	buildCardTree(f)
	f.properties = cardProperties()
	f.setPropsErr = errors.New("unknown command")
	f.bulkHideErr = errors.New("unknown command")

	newController(f).Apply(context.Background(), "card", Attrs{HasTitle: true, HasSource: true, ImageCount: 1})

	singles := f.callsFor("set_node_visible")
	if len(singles) != 3 {
		t.Fatalf("expected 3 per-node hides, got %d", len(singles))
	}
	seen := map[string]bool{}
	for _, c := range singles {
		seen[asString(c.params["nodeId"])] = true
		if c.params["visible"] != false {
			t.Error("per-node call must hide")
		}
	}
	for _, want := range []string{"s2", "s3", "s4"} {
		if !seen[want] {
			t.Errorf("slot %s not hidden individually", want)
		}
	}
}

func TestApplyVisibilityNoMatchingKeys(t *testing.T) {
	f := newFakeCanvas()
	buildCardTree(f)
	f.properties = map[string]canvas.PropertyValue{"unrelated#1:1": boolProp()}

	newController(f).Apply(context.Background(), "card", Attrs{HasTitle: false, HasSource: false, ImageCount: 0})

	if len(f.callsFor("set_instance_properties")) != 0 {
		t.Error("empty payload must not be sent")
	}
	hides := f.callsFor("set_nodes_visible")
	if len(hides) != 1 {
		t.Fatalf("expected hide fallback when no keys match, got %d calls", len(hides))
	}
	// Everything should be hidden: title, source, and all four slots.
	if ids := hides[0].params["nodeIds"].([]any); len(ids) != 6 {
		t.Errorf("expected 6 hidden nodes, got %v", ids)
	}
}

func TestApplyVisibilityPropertyQueryError(t *testing.T) {
	f := newFakeCanvas()
	buildCardTree(f)
	f.propsErr = errors.New("timeout")

	newController(f).Apply(context.Background(), "card", Attrs{HasTitle: true, HasSource: false, ImageCount: 4})

	hides := f.callsFor("set_nodes_visible")
	if len(hides) != 1 {
		t.Fatalf("expected hide fallback on query error, got %d calls", len(hides))
	}
	// Only the source slot should be hidden for this card.
	ids := hides[0].params["nodeIds"].([]any)
	if len(ids) != 1 || ids[0].(string) != "source" {
		t.Errorf("expected only sourceSlot hidden, got %v", ids)
	}
}
