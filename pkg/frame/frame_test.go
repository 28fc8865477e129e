package frame

import (
	"bytes"
	"testing"
)

func TestKind(t *testing.T) {
	tests := []struct {
		kind     Kind
		str      string
		pictType string
	}{
		{KindKey, "key", "I"},
		{KindDelta, "delta", "P"},
		{KindBidirectional, "bidirectional", "B"},
		{KindUnknown, "unknown", "?"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.str {
				t.Errorf("String() = %v, want %v", got, tt.str)
			}
			if got := tt.kind.PictType(); got != tt.pictType {
				t.Errorf("PictType() = %v, want %v", got, tt.pictType)
			}
			if tt.kind != KindUnknown {
				if got := KindFromPictType(tt.pictType); got != tt.kind {
					t.Errorf("KindFromPictType(%q) = %v, want %v", tt.pictType, got, tt.kind)
				}
			}
		})
	}

	if got := KindFromPictType("X"); got != KindUnknown {
		t.Errorf("KindFromPictType(X) = %v, want KindUnknown", got)
	}
}

func TestFrameLifecycle(t *testing.T) {
	input := []byte{1, 2, 3}
	f := NewDecoded([][]byte{input}, KindKey, 42)

	if f.State() != StateDecoded {
		t.Fatalf("State() = %v, want StateDecoded", f.State())
	}
	if !f.HasPTS() {
		t.Error("HasPTS() = false, want true")
	}
	if _, ok := f.Output(); ok {
		t.Error("Output() ok = true before any write")
	}
	if got := f.InputPlane(0); !bytes.Equal(got, input) {
		t.Errorf("InputPlane(0) = %v, want %v", got, input)
	}
	if got := f.InputPlane(1); got != nil {
		t.Errorf("InputPlane(1) = %v, want nil", got)
	}

	f.SetOutput([]byte{9, 9})
	if f.State() != StateProcessed {
		t.Fatalf("State() = %v, want StateProcessed", f.State())
	}
	out, ok := f.Output()
	if !ok || !bytes.Equal(out, []byte{9, 9}) {
		t.Errorf("Output() = %v, %v, want [9 9], true", out, ok)
	}

	// last write wins
	f.SetOutput([]byte{7})
	out, _ = f.Output()
	if !bytes.Equal(out, []byte{7}) {
		t.Errorf("Output() after overwrite = %v, want [7]", out)
	}
}

func TestNoPTS(t *testing.T) {
	f := NewDecoded(nil, KindUnknown, NoPTS)
	if f.HasPTS() {
		t.Error("HasPTS() = true for NoPTS frame")
	}
}
