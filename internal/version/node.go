// Package version implements append-only version chains for editable content.
//
// Every edit of a task, question group, question, choice or drag item appends a
// new node instead of mutating the existing row. Nodes of one chain share an
// OriginalID and point at the node they were derived from through ParentID.
// Chains are stored arena-style (a flat slice per kind); the children index is
// built on demand.
package version

import (
	"github.com/google/uuid"
)

// Node is the versioning header shared by every editable entity.
type Node struct {
	ID         uuid.UUID  `json:"id"`
	OriginalID uuid.UUID  `json:"original_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	IsOriginal bool       `json:"is_original"`
	IsCurrent  bool       `json:"is_current"`
	IsDeleted  bool       `json:"is_deleted"`
	Version    int        `json:"version"`
}

// VersionNode lets any struct embedding Node satisfy Versioned.
func (n Node) VersionNode() Node { return n }

// Live reports whether the node may be shown to new attempts.
func (n Node) Live() bool { return n.IsCurrent && !n.IsDeleted }

// Versioned is implemented by every entity that embeds Node.
type Versioned interface {
	VersionNode() Node
}

// NewOriginal returns the root node of a fresh chain.
func NewOriginal() Node {
	id := uuid.New()
	return Node{
		ID:         id,
		OriginalID: id,
		IsOriginal: true,
		IsCurrent:  true,
		Version:    1,
	}
}
