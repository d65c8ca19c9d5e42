package patch

import (
	"encoding/json"
	"testing"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		p       Patch
		wantErr bool
	}{
		{"set_text", Patch{Op: OpSetText, UID: "u1", Text: "hello"}, false},
		{"set_text empty text ok", Patch{Op: OpSetText, UID: "u1"}, false},
		{"delete", Patch{Op: OpDeleteNode, UID: "u1"}, false},
		{"set_style", Patch{Op: OpSetStyle, UID: "u1", Style: map[string]string{"color": "red"}}, false},
		{"set_style empty", Patch{Op: OpSetStyle, UID: "u1"}, true},
		{"set_attr", Patch{Op: OpSetAttr, UID: "u1", Attr: map[string]string{"href": "#"}}, false},
		{"set_attr empty", Patch{Op: OpSetAttr, UID: "u1"}, true},
		{"set_classes add only", Patch{Op: OpSetClasses, UID: "u1", Add: []string{"a"}}, false},
		{"set_classes remove only", Patch{Op: OpSetClasses, UID: "u1", Remove: []string{"a"}}, false},
		{"set_classes empty", Patch{Op: OpSetClasses, UID: "u1"}, true},
		{"missing uid", Patch{Op: OpSetText}, true},
		{"unknown op", Patch{Op: "explode", UID: "u1"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestWireFormat(t *testing.T) {
	p := Patch{
		Op:     OpSetClasses,
		UID:    "u1",
		Add:    []string{"active"},
		Remove: []string{"hidden"},
	}
	data, err := Marshal(p)
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["op"] != "set_classes" {
		t.Fatalf("op = %v, want set_classes", raw["op"])
	}
	if _, ok := raw["text"]; ok {
		t.Fatal("empty text should be omitted from wire format")
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.UID != "u1" || len(got.Add) != 1 || len(got.Remove) != 1 {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"op":"set_style","uid":"u1"}`)); err == nil {
		t.Fatal("expected validation error for set_style without style map")
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

type recordingMutator struct {
	calls []string
	found bool
}

func (r *recordingMutator) SetText(uid, text string) bool {
	r.calls = append(r.calls, "set_text:"+uid+":"+text)
	return r.found
}
func (r *recordingMutator) SetStyle(uid string, style map[string]string) bool {
	r.calls = append(r.calls, "set_style:"+uid)
	return r.found
}
func (r *recordingMutator) SetAttr(uid string, attr map[string]string) bool {
	r.calls = append(r.calls, "set_attr:"+uid)
	return r.found
}
func (r *recordingMutator) SetClasses(uid string, add, remove []string) bool {
	r.calls = append(r.calls, "set_classes:"+uid)
	return r.found
}
func (r *recordingMutator) DeleteNode(uid string) bool {
	r.calls = append(r.calls, "delete_node:"+uid)
	return r.found
}

func TestApply_Dispatch(t *testing.T) {
	m := &recordingMutator{found: true}

	patches := []Patch{
		{Op: OpSetText, UID: "u1", Text: "x"},
		{Op: OpSetStyle, UID: "u2", Style: map[string]string{"color": "red"}},
		{Op: OpSetAttr, UID: "u3", Attr: map[string]string{"href": "#"}},
		{Op: OpSetClasses, UID: "u4", Add: []string{"a"}},
		{Op: OpDeleteNode, UID: "u5"},
	}
	for _, p := range patches {
		found, err := Apply(m, p)
		if err != nil {
			t.Fatalf("Apply(%s): %v", p.Op, err)
		}
		if !found {
			t.Fatalf("Apply(%s): found = false, want true", p.Op)
		}
	}

	want := []string{"set_text:u1:x", "set_style:u2", "set_attr:u3", "set_classes:u4", "delete_node:u5"}
	if len(m.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", m.calls, want)
	}
	for i := range want {
		if m.calls[i] != want[i] {
			t.Fatalf("call[%d] = %q, want %q", i, m.calls[i], want[i])
		}
	}
}

func TestApply_MissingUIDIsNoError(t *testing.T) {
	m := &recordingMutator{found: false}
	found, err := Apply(m, Patch{Op: OpSetText, UID: "gone", Text: "x"})
	if err != nil {
		t.Fatalf("missing uid must not error: %v", err)
	}
	if found {
		t.Fatal("found = true for missing uid")
	}
}

func TestApply_InvalidPatch(t *testing.T) {
	m := &recordingMutator{}
	if _, err := Apply(m, Patch{Op: "bogus", UID: "u1"}); err == nil {
		t.Fatal("expected error for unknown op")
	}
	if len(m.calls) != 0 {
		t.Fatalf("invalid patch must not reach the mutator, got calls %v", m.calls)
	}
}
