// internal/poster/finalize.go
package poster

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/user/posterforge/internal/canvas"
	"github.com/user/posterforge/internal/types"
)

// contentAnchorNames is the ordered list of conventional names tried when
// locating the content anchor for resize. When none is found the resize
// proceeds anchorless and relies on the tool's own content-bounds inference.
var contentAnchorNames = []string{"contentAnchor", "cardList", "cards"}

// Finalizer resizes the populated poster frame to fit and exports it.
type Finalizer struct {
	client    *canvas.Client
	resolver  *canvas.Resolver
	outputDir string
	format    string
	padding   float64
}

func NewFinalizer(client *canvas.Client, resolver *canvas.Resolver, outputDir, format string, padding float64) *Finalizer {
	return &Finalizer{
		client:    client,
		resolver:  resolver,
		outputDir: outputDir,
		format:    format,
		padding:   padding,
	}
}

// Finalize resizes frameID to wrap its content plus bottom padding, exports
// it, and returns the verified output path. A failed resize is soft (logged,
// export still attempted); a failed export is an error for this export only.
func (f *Finalizer) Finalize(ctx context.Context, frameID types.NodeID, outName string) (string, error) {
	var anchorID types.NodeID
	for _, name := range contentAnchorNames {
		if id, ok := f.resolver.Find(ctx, frameID, name, nil); ok {
			anchorID = id
			break
		}
	}
	if anchorID == "" {
		slog.Info("no content anchor found, resizing by inferred bounds", "frame", frameID)
	}

	ok, err := f.client.ResizeToFit(ctx, frameID, anchorID, f.padding)
	if err != nil {
		slog.Warn("resize failed", "frame", frameID, "error", err)
	} else if !ok {
		slog.Warn("resize reported no success flag", "frame", frameID)
	}

	return f.export(ctx, frameID, outName)
}

func (f *Finalizer) export(ctx context.Context, frameID types.NodeID, outName string) (string, error) {
	res, err := f.client.ExportNode(ctx, frameID, f.format)
	if err != nil {
		return "", fmt.Errorf("export %s: %w", frameID, err)
	}

	switch {
	case res.Path != "":
		info, err := os.Stat(res.Path)
		if err != nil {
			return "", fmt.Errorf("exported path %s: %w", res.Path, err)
		}
		if info.Size() == 0 {
			return "", fmt.Errorf("exported file %s is empty", res.Path)
		}
		return res.Path, nil

	case res.Data != "":
		data, err := base64.StdEncoding.DecodeString(res.Data)
		if err != nil {
			return "", fmt.Errorf("decode export payload: %w", err)
		}
		if err := os.MkdirAll(f.outputDir, 0755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
		path := filepath.Join(f.outputDir, outName)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("write export: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			return "", fmt.Errorf("written export %s is empty", path)
		}
		return path, nil

	default:
		return "", fmt.Errorf("export response carried neither path nor data")
	}
}
