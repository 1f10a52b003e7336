package cards

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

func newFiller(f *fakeCanvas, assets mapAssets, baseURL string) *Filler {
	client := canvas.NewClient(f)
	return NewFiller(client, canvas.NewResolver(client), assets, baseURL, types.DefaultMapping(), time.Millisecond)
}

func buildSlotCard(f *fakeCanvas, slots int) {
	f.add("card", "card", "INSTANCE")
	ids := []types.NodeID{}
	for i := 1; i <= slots; i++ {
		id := types.NodeID(types.DefaultMapping().ImageSlotName(i))
		f.add(id, string(id), "RECTANGLE")
		ids = append(ids, id)
	}
	f.link("card", ids...)
}

func TestFillerAssignsDistinctTargets(t *testing.T) {
	f := newFakeCanvas()
	buildSlotCard(f, 3)

	report := newFiller(f, nil, "http://localhost:3055").
		Fill(context.Background(), "card", []types.AssetID{"a1", "a2"})

	if report.Filled != 2 || len(report.Skipped) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	fills := f.callsFor("set_image_fill_url")
	if len(fills) != 2 {
		t.Fatalf("expected 2 url fills, got %d", len(fills))
	}
	first := asString(fills[0].params["nodeId"])
	second := asString(fills[1].params["nodeId"])
	if first == second {
		t.Errorf("two assets assigned to the same target %s", first)
	}
	if asString(fills[0].params["url"]) != "http://localhost:3055/assets/a1" {
		t.Errorf("unexpected asset url %v", fills[0].params["url"])
	}
}

func TestFillerExcessAssetsSkipped(t *testing.T) {
	f := newFakeCanvas()
	buildSlotCard(f, 1)

	report := newFiller(f, nil, "http://localhost:3055").
		Fill(context.Background(), "card", []types.AssetID{"a1", "a2", "a3"})

	if report.Filled != 1 {
		t.Errorf("expected 1 fill, got %d", report.Filled)
	}
	if !reflect.DeepEqual(report.Skipped, []types.AssetID{"a2", "a3"}) {
		t.Errorf("excess assets must be reported skipped, got %v", report.Skipped)
	}
}

func TestFillerHiddenSlotExcluded(t *testing.T) {
	f := newFakeCanvas()
	f.add("card", "card", "INSTANCE")
	f.addHidden("h1", types.DefaultMapping().ImageSlotName(1), "RECTANGLE")
	f.add("v2", types.DefaultMapping().ImageSlotName(2), "RECTANGLE")
	f.link("card", "h1", "v2")

	newFiller(f, nil, "http://localhost:3055").
		Fill(context.Background(), "card", []types.AssetID{"a1"})

	fills := f.callsFor("set_image_fill_url")
	if len(fills) != 1 || asString(fills[0].params["nodeId"]) != "v2" {
		t.Errorf("hidden slot must be skipped, fills=%+v", fills)
	}
}

func TestFillerInlineFallback(t *testing.T) {
	f := newFakeCanvas()
	buildSlotCard(f, 1)
	f.urlFillErr = errors.New("fetch failed")
	assets := mapAssets{"a1": []byte("png-bytes")}

	report := newFiller(f, assets, "http://localhost:3055").
		Fill(context.Background(), "card", []types.AssetID{"a1"})

	if report.Filled != 1 {
		t.Fatalf("inline fallback should fill, report %+v", report)
	}
	inlines := f.callsFor("set_image_fill_data")
	if len(inlines) != 1 {
		t.Fatalf("expected 1 inline fill, got %d", len(inlines))
	}
	want := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	if asString(inlines[0].params["data"]) != want {
		t.Error("inline payload is not the base64 of the local asset")
	}
	if asString(inlines[0].params["mimeType"]) != "image/png" {
		t.Errorf("unexpected mime type %v", inlines[0].params["mimeType"])
	}
}

func TestFillerAssetMissingEverywhere(t *testing.T) {
	f := newFakeCanvas()
	buildSlotCard(f, 1)
	f.urlFillErr = errors.New("fetch failed")

	report := newFiller(f, mapAssets{}, "http://localhost:3055").
		Fill(context.Background(), "card", []types.AssetID{"a1"})

	if report.Filled != 0 || !reflect.DeepEqual(report.Skipped, []types.AssetID{"a1"}) {
		t.Errorf("unfillable asset must be skipped, report %+v", report)
	}
}

func TestFillerGridDiscoveryOrder(t *testing.T) {
	f := newFakeCanvas()
	f.add("card", "card", "INSTANCE")
	f.add("grid", "imageGrid", "FRAME")
	f.add("r1", "cell a", "RECTANGLE")
	f.add("fa", "cell frame", "FRAME")
	f.add("r2", "cell b", "RECTANGLE")
	f.link("card", "grid")
	f.link("grid", "r1", "fa", "r2")

	report := newFiller(f, nil, "http://localhost:3055").
		Fill(context.Background(), "card", []types.AssetID{"a1", "a2"})

	if report.Filled != 2 {
		t.Fatalf("expected 2 fills from grid scan, report %+v", report)
	}
	fills := f.callsFor("set_image_fill_url")
	got := []string{asString(fills[0].params["nodeId"]), asString(fills[1].params["nodeId"])}
	// Frames outrank shapes; within each class traversal order holds.
	want := []string{"fa", "r1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("grid candidates %v, want %v", got, want)
	}
}
