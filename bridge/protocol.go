// Package bridge defines the message protocol between the host and the
// sandboxed editor agent, and the transport that carries it. Delivery is
// fire-and-forget in both directions: no acknowledgements, bounded buffers,
// drop on overflow. Every handler on either side must therefore be
// idempotent and safe under reordering or loss.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/dukes-snr/EazyUi-sub001/dom"
	"github.com/dukes-snr/EazyUi-sub001/editable"
	"github.com/dukes-snr/EazyUi-sub001/patch"
)

// Envelope is the wire frame for every message. Both directions reject
// envelopes whose ScreenID does not match the active session.
type Envelope struct {
	ScreenID string          `json:"screen_id"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// CommandType enumerates host→sandbox messages.
type CommandType string

const (
	CmdApplyPatch      CommandType = "apply_patch"
	CmdSelectUID       CommandType = "select_uid"
	CmdSelectParent    CommandType = "select_parent"
	CmdSelectContainer CommandType = "select_container"
	CmdClearSelection  CommandType = "clear_selection"
	CmdDeleteSelected  CommandType = "delete_selected"
	CmdPointerMove     CommandType = "pointer_move"
	CmdClick           CommandType = "click"
	CmdReload          CommandType = "reload"
)

// Command is the closed host→sandbox union. Exactly the fields its Type
// needs are set; everything else stays zero.
type Command struct {
	Type  CommandType  `json:"type"`
	Patch *patch.Patch `json:"patch,omitempty"` // apply_patch
	UID   string       `json:"uid,omitempty"`   // select_uid
	Path  dom.NodePath `json:"path,omitempty"`  // pointer_move, click
	HTML  string       `json:"html,omitempty"`  // reload
}

// Validate checks the per-type required fields.
func (c Command) Validate() error {
	switch c.Type {
	case CmdApplyPatch:
		if c.Patch == nil {
			return fmt.Errorf("bridge: apply_patch without patch")
		}
		return c.Patch.Validate()
	case CmdSelectUID:
		if c.UID == "" {
			return fmt.Errorf("bridge: select_uid without uid")
		}
	case CmdPointerMove, CmdClick:
		if c.Path == nil {
			return fmt.Errorf("bridge: %s without path", c.Type)
		}
	case CmdReload:
		// Empty HTML is allowed: reloading an emptied screen is valid.
	case CmdSelectParent, CmdSelectContainer, CmdClearSelection, CmdDeleteSelected:
	default:
		return fmt.Errorf("bridge: unknown command type %q", c.Type)
	}
	return nil
}

// EventType enumerates sandbox→host messages.
type EventType string

const (
	EvtReady            EventType = "ready"
	EvtSelectionChanged EventType = "selection_changed"
	EvtSelectionCleared EventType = "selection_cleared"
	EvtHoverChanged     EventType = "hover_changed"
	EvtDeleteRequested  EventType = "delete_requested"
	EvtPatchApplied     EventType = "patch_applied"
)

// Event is the closed sandbox→host union.
type Event struct {
	Type EventType      `json:"type"`
	Node *editable.Node `json:"node,omitempty"` // selection_changed: full descriptor
	UID  string         `json:"uid,omitempty"`  // delete_requested, hover_changed, patch_applied
	Op   patch.Op       `json:"op,omitempty"`   // patch_applied
	Rect *editable.Rect `json:"rect,omitempty"` // hover_changed overlay box
	Tag  string         `json:"tag,omitempty"`  // hover_changed overlay label
}

// Validate checks the per-type required fields.
func (e Event) Validate() error {
	switch e.Type {
	case EvtSelectionChanged:
		if e.Node == nil {
			return fmt.Errorf("bridge: selection_changed without descriptor")
		}
	case EvtDeleteRequested:
		if e.UID == "" {
			return fmt.Errorf("bridge: delete_requested without uid")
		}
	case EvtPatchApplied:
		if e.UID == "" || e.Op == "" {
			return fmt.Errorf("bridge: patch_applied without uid/op")
		}
	case EvtReady, EvtSelectionCleared, EvtHoverChanged:
	default:
		return fmt.Errorf("bridge: unknown event type %q", e.Type)
	}
	return nil
}

// EncodeCommand wraps a command for a screen.
func EncodeCommand(screenID string, c Command) (Envelope, error) {
	if err := c.Validate(); err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ScreenID: screenID, Type: string(c.Type), Payload: payload}, nil
}

// DecodeCommand unwraps and validates a command envelope.
func DecodeCommand(env Envelope) (Command, error) {
	var c Command
	if err := json.Unmarshal(env.Payload, &c); err != nil {
		return Command{}, fmt.Errorf("bridge: decode command: %w", err)
	}
	if string(c.Type) != env.Type {
		return Command{}, fmt.Errorf("bridge: envelope type %q does not match payload %q", env.Type, c.Type)
	}
	if err := c.Validate(); err != nil {
		return Command{}, err
	}
	return c, nil
}

// EncodeEvent wraps an event for a screen.
func EncodeEvent(screenID string, e Event) (Envelope, error) {
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ScreenID: screenID, Type: string(e.Type), Payload: payload}, nil
}

// DecodeEvent unwraps and validates an event envelope.
func DecodeEvent(env Envelope) (Event, error) {
	var e Event
	if err := json.Unmarshal(env.Payload, &e); err != nil {
		return Event{}, fmt.Errorf("bridge: decode event: %w", err)
	}
	if string(e.Type) != env.Type {
		return Event{}, fmt.Errorf("bridge: envelope type %q does not match payload %q", env.Type, e.Type)
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}
