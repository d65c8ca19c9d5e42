// Package patch defines the structured document mutations exchanged between
// the host and the sandbox agent. These are the public API contract: the live
// agent, the replay engine, and every transport (HTTP, MCP, bridge envelopes)
// share this wire format.
package patch

import (
	"encoding/json"
	"fmt"
)

// Op is the type of document mutation.
type Op string

const (
	OpSetText    Op = "set_text"    // replace text content (value for form controls)
	OpSetStyle   Op = "set_style"   // merge declarations into inline style
	OpSetAttr    Op = "set_attr"    // merge attribute key/value pairs
	OpSetClasses Op = "set_classes" // remove classes, then add classes (add wins)
	OpDeleteNode Op = "delete_node" // remove the node and its subtree
)

// Patch is a single uid-addressed document mutation.
//
// Wire format:
//
//	{op, uid, text?, style?, attr?, add?, remove?}
type Patch struct {
	Op     Op                `json:"op"`
	UID    string            `json:"uid"`
	Text   string            `json:"text,omitempty"`
	Style  map[string]string `json:"style,omitempty"`
	Attr   map[string]string `json:"attr,omitempty"`
	Add    []string          `json:"add,omitempty"`
	Remove []string          `json:"remove,omitempty"`
}

// Validate checks structural validity of the patch. It does not check that
// the uid exists in any document; a missing uid is a replay-time no-op, not
// an error.
func (p Patch) Validate() error {
	if p.UID == "" {
		return fmt.Errorf("patch: missing uid")
	}
	switch p.Op {
	case OpSetText, OpDeleteNode:
		return nil
	case OpSetStyle:
		if len(p.Style) == 0 {
			return fmt.Errorf("patch: set_style with empty style map")
		}
	case OpSetAttr:
		if len(p.Attr) == 0 {
			return fmt.Errorf("patch: set_attr with empty attr map")
		}
	case OpSetClasses:
		if len(p.Add) == 0 && len(p.Remove) == 0 {
			return fmt.Errorf("patch: set_classes with no classes")
		}
	default:
		return fmt.Errorf("patch: unknown op %q", p.Op)
	}
	return nil
}

// Marshal serialises a Patch to JSON.
func Marshal(p Patch) ([]byte, error) {
	return json.Marshal(p)
}

// Unmarshal deserialises and validates a Patch from JSON.
func Unmarshal(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Patch{}, err
	}
	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Mutator is the document-mutation contract. Two implementations exist: the
// live tree held by the sandbox agent and the serialized-string rebuild path
// of the patch log. Both must stay semantically identical so live editing and
// replay never diverge; the mutator conformance test in the dom package
// holds them to it.
//
// Each method returns whether the uid resolved to a node. False is not an
// error: it tolerates replays where an earlier delete already removed the
// target.
type Mutator interface {
	SetText(uid, text string) bool
	SetStyle(uid string, style map[string]string) bool
	SetAttr(uid string, attr map[string]string) bool
	SetClasses(uid string, add, remove []string) bool
	DeleteNode(uid string) bool
}

// Apply dispatches a validated patch onto a Mutator. The returned bool
// reports whether the target node existed.
func Apply(m Mutator, p Patch) (bool, error) {
	if err := p.Validate(); err != nil {
		return false, err
	}
	switch p.Op {
	case OpSetText:
		return m.SetText(p.UID, p.Text), nil
	case OpSetStyle:
		return m.SetStyle(p.UID, p.Style), nil
	case OpSetAttr:
		return m.SetAttr(p.UID, p.Attr), nil
	case OpSetClasses:
		return m.SetClasses(p.UID, p.Add, p.Remove), nil
	case OpDeleteNode:
		return m.DeleteNode(p.UID), nil
	}
	return false, fmt.Errorf("patch: unknown op %q", p.Op)
}
