// internal/types/ids.go
package types

import "github.com/google/uuid"

type RunID string
type NodeID string
type AssetID string
type FrameID string

func NewRunID() RunID {
	return RunID(uuid.New().String())
}

func NewFrameID() FrameID {
	return FrameID(uuid.New().String())
}
