package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

// call records one command the code under test issued.
type call struct {
	command string
	params  map[string]any
}

// fakeCanvas is a scripted remote tool: an in-memory node tree plus
// per-command failure switches.
type fakeCanvas struct {
	mu    sync.Mutex
	nodes map[types.NodeID]*types.RemoteNode
	calls []call

	properties   map[string]canvas.PropertyValue
	propsErr     error
	setPropsSoft bool // respond success:false
	setPropsErr  error
	bulkHideErr  error
	perNodeErr   error

	createID  types.NodeID
	createErr error
	cloneID   types.NodeID
	cloneErr  error

	urlFillErr error
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{nodes: make(map[types.NodeID]*types.RemoteNode)}
}

func (f *fakeCanvas) add(id types.NodeID, name, kind string) *types.RemoteNode {
	n := &types.RemoteNode{ID: id, Name: name, Type: kind}
	f.nodes[id] = n
	return n
}

func (f *fakeCanvas) addHidden(id types.NodeID, name, kind string) {
	n := f.add(id, name, kind)
	hidden := false
	n.Visible = &hidden
}

func (f *fakeCanvas) link(parent types.NodeID, childIDs ...types.NodeID) {
	p := f.nodes[parent]
	for _, cid := range childIDs {
		c := f.nodes[cid]
		p.Children = append(p.Children, types.RemoteNode{ID: c.ID, Name: c.Name, Type: c.Type, Visible: c.Visible})
	}
}

func (f *fakeCanvas) SendCommand(_ context.Context, command string, params any) (json.RawMessage, error) {
	p := make(map[string]any)
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{command: command, params: p})
	f.mu.Unlock()

	switch command {
	case "get_node_info":
		id := types.NodeID(asString(p["nodeId"]))
		n, ok := f.nodes[id]
		if !ok {
			return nil, fmt.Errorf("node %s not found", id)
		}
		return json.Marshal(n)
	case "get_selection":
		return json.Marshal(map[string]any{"selection": []types.RemoteNode{}})
	case "get_instance_properties":
		if f.propsErr != nil {
			return nil, f.propsErr
		}
		return json.Marshal(map[string]any{"properties": f.properties})
	case "set_instance_properties":
		if f.setPropsErr != nil {
			return nil, f.setPropsErr
		}
		return json.Marshal(map[string]any{"success": !f.setPropsSoft})
	case "set_nodes_visible":
		if f.bulkHideErr != nil {
			return nil, f.bulkHideErr
		}
		return json.Marshal(map[string]any{"success": true})
	case "set_node_visible":
		if f.perNodeErr != nil {
			return nil, f.perNodeErr
		}
		return json.Marshal(map[string]any{"success": true})
	case "create_component_instance":
		if f.createErr != nil {
			return nil, f.createErr
		}
		if f.createID == "" {
			return json.Marshal(map[string]any{})
		}
		return json.Marshal(map[string]any{"id": f.createID})
	case "clone_node":
		if f.cloneErr != nil {
			return nil, f.cloneErr
		}
		return json.Marshal(map[string]any{"id": f.cloneID})
	case "set_image_fill_url":
		if f.urlFillErr != nil {
			return nil, f.urlFillErr
		}
		return json.Marshal(map[string]any{"success": true})
	case "set_image_fill_data":
		return json.Marshal(map[string]any{"success": true})
	case "set_text_content", "flush_layout":
		return json.Marshal(map[string]any{"success": true})
	default:
		return nil, fmt.Errorf("fakeCanvas: unsupported command %q", command)
	}
}

func (f *fakeCanvas) callsFor(command string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.command == command {
			out = append(out, c)
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// mapAssets is an AssetSource backed by a map.
type mapAssets map[types.AssetID][]byte

func (m mapAssets) Read(id types.AssetID) ([]byte, string, error) {
	data, ok := m[id]
	if !ok {
		return nil, "", errors.New("asset not found")
	}
	return data, "image/png", nil
}
