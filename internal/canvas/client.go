// internal/canvas/client.go
package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/user/posterforge/internal/types"
)

// Commander is the one contract the canvas layer needs from the channel
// session. Tests substitute a scripted fake.
type Commander interface {
	SendCommand(ctx context.Context, command string, params any) (json.RawMessage, error)
}

// ErrSoftFailure marks a command the remote tool accepted but could not
// apply (success flag false or missing where one is expected).
var ErrSoftFailure = errors.New("remote tool reported failure")

// Client wraps the raw command channel with typed scene-graph operations.
// Nothing here caches: the remote tree can mutate between calls, so every
// read goes back to the tool.
type Client struct {
	cmd Commander
}

func NewClient(cmd Commander) *Client {
	return &Client{cmd: cmd}
}

// NodeInfo fetches a node projection including its immediate children.
func (c *Client) NodeInfo(ctx context.Context, id types.NodeID) (*types.RemoteNode, error) {
	res, err := c.cmd.SendCommand(ctx, "get_node_info", map[string]any{"nodeId": id})
	if err != nil {
		return nil, err
	}
	var node types.RemoteNode
	if err := json.Unmarshal(res, &node); err != nil {
		return nil, fmt.Errorf("decode node info: %w", err)
	}
	if node.ID == "" {
		return nil, fmt.Errorf("node %s: empty projection", id)
	}
	return &node, nil
}

// DocumentInfo fetches the current page projection.
func (c *Client) DocumentInfo(ctx context.Context) (*types.RemoteNode, error) {
	res, err := c.cmd.SendCommand(ctx, "get_document_info", nil)
	if err != nil {
		return nil, err
	}
	var node types.RemoteNode
	if err := json.Unmarshal(res, &node); err != nil {
		return nil, fmt.Errorf("decode document info: %w", err)
	}
	return &node, nil
}

// Selection returns whatever the tool reports as the user's active selection.
func (c *Client) Selection(ctx context.Context) ([]types.RemoteNode, error) {
	res, err := c.cmd.SendCommand(ctx, "get_selection", nil)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Selection []types.RemoteNode `json:"selection"`
	}
	if err := json.Unmarshal(res, &payload); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	return payload.Selection, nil
}

// CreateInstance instantiates a component by key inside a parent. An empty
// returned id means the tool answered without creating anything; the caller
// decides whether to fall back.
func (c *Client) CreateInstance(ctx context.Context, componentKey string, parentID types.NodeID) (types.NodeID, error) {
	res, err := c.cmd.SendCommand(ctx, "create_component_instance", map[string]any{
		"componentKey": componentKey,
		"parentId":     parentID,
	})
	if err != nil {
		return "", err
	}
	return decodeNodeID(res), nil
}

// CloneNode duplicates a node and appends the copy at the end of parent.
func (c *Client) CloneNode(ctx context.Context, id, parentID types.NodeID) (types.NodeID, error) {
	res, err := c.cmd.SendCommand(ctx, "clone_node", map[string]any{
		"nodeId":   id,
		"parentId": parentID,
	})
	if err != nil {
		return "", err
	}
	return decodeNodeID(res), nil
}

func decodeNodeID(res json.RawMessage) types.NodeID {
	var payload struct {
		ID     types.NodeID `json:"id"`
		NodeID types.NodeID `json:"nodeId"`
	}
	if err := json.Unmarshal(res, &payload); err != nil {
		return ""
	}
	if payload.ID != "" {
		return payload.ID
	}
	return payload.NodeID
}

// SetText replaces a text node's characters.
func (c *Client) SetText(ctx context.Context, id types.NodeID, text string) error {
	_, err := c.cmd.SendCommand(ctx, "set_text_content", map[string]any{
		"nodeId": id,
		"text":   text,
	})
	return err
}

// PropertyValue is one dynamic component property as the tool reports it.
type PropertyValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// InstanceProperties queries the dynamic property keys exposed by an
// instance. Keys are a semantic base name plus an opaque per-component
// suffix; callers match them through MatchKey.
func (c *Client) InstanceProperties(ctx context.Context, id types.NodeID) (map[string]PropertyValue, error) {
	res, err := c.cmd.SendCommand(ctx, "get_instance_properties", map[string]any{"nodeId": id})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Properties map[string]PropertyValue `json:"properties"`
	}
	if err := json.Unmarshal(res, &payload); err != nil {
		return nil, fmt.Errorf("decode instance properties: %w", err)
	}
	return payload.Properties, nil
}

// SetProperties issues one bulk property assignment. A response without a
// true success flag is ErrSoftFailure.
func (c *Client) SetProperties(ctx context.Context, id types.NodeID, props map[string]any) error {
	res, err := c.cmd.SendCommand(ctx, "set_instance_properties", map[string]any{
		"nodeId":     id,
		"properties": props,
	})
	if err != nil {
		return err
	}
	if !decodeSuccess(res) {
		return fmt.Errorf("set_instance_properties on %s: %w", id, ErrSoftFailure)
	}
	return nil
}

// SetVisible toggles one node's visibility.
func (c *Client) SetVisible(ctx context.Context, id types.NodeID, visible bool) error {
	_, err := c.cmd.SendCommand(ctx, "set_node_visible", map[string]any{
		"nodeId":  id,
		"visible": visible,
	})
	return err
}

// SetNodesVisible toggles visibility on several nodes in one call.
func (c *Client) SetNodesVisible(ctx context.Context, ids []types.NodeID, visible bool) error {
	res, err := c.cmd.SendCommand(ctx, "set_nodes_visible", map[string]any{
		"nodeIds": ids,
		"visible": visible,
	})
	if err != nil {
		return err
	}
	if !decodeSuccess(res) {
		return fmt.Errorf("set_nodes_visible: %w", ErrSoftFailure)
	}
	return nil
}

// SetImageURL asks the tool to fill a node with an image it fetches itself.
func (c *Client) SetImageURL(ctx context.Context, id types.NodeID, url string) error {
	_, err := c.cmd.SendCommand(ctx, "set_image_fill_url", map[string]any{
		"nodeId": id,
		"url":    url,
	})
	return err
}

// SetImageData fills a node from inline base64 bytes. Far more expensive on
// the wire than the URL path; callers throttle it.
func (c *Client) SetImageData(ctx context.Context, id types.NodeID, data, mimeType string) error {
	_, err := c.cmd.SendCommand(ctx, "set_image_fill_data", map[string]any{
		"nodeId":   id,
		"data":     data,
		"mimeType": mimeType,
	})
	return err
}

// ResizeToFit grows or shrinks a frame to wrap its content plus bottom
// padding. anchorID may be empty; the tool then infers content bounds.
func (c *Client) ResizeToFit(ctx context.Context, id, anchorID types.NodeID, paddingBottom float64) (bool, error) {
	params := map[string]any{
		"nodeId":        id,
		"paddingBottom": paddingBottom,
	}
	if anchorID != "" {
		params["anchorId"] = anchorID
	}
	res, err := c.cmd.SendCommand(ctx, "resize_to_fit", params)
	if err != nil {
		return false, err
	}
	return decodeSuccess(res), nil
}

// ExportResult is what the tool hands back for an export: a server-relative
// path, or inline base64 data, never both.
type ExportResult struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

// ExportNode renders a node to an image.
func (c *Client) ExportNode(ctx context.Context, id types.NodeID, format string) (*ExportResult, error) {
	res, err := c.cmd.SendCommand(ctx, "export_node", map[string]any{
		"nodeId": id,
		"format": format,
	})
	if err != nil {
		return nil, err
	}
	var out ExportResult
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("decode export result: %w", err)
	}
	return &out, nil
}

// FlushLayout forces pending auto-layout to settle so subsequent reads
// observe post-mutation geometry.
func (c *Client) FlushLayout(ctx context.Context) error {
	_, err := c.cmd.SendCommand(ctx, "flush_layout", nil)
	return err
}

func decodeSuccess(res json.RawMessage) bool {
	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(res, &payload); err != nil {
		return false
	}
	return payload.Success
}
