package idgen

import (
	"strings"
	"testing"
)

func TestNext_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := Next()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestNextWithPrefix(t *testing.T) {
	id := NextWithPrefix("PO-")
	if !strings.HasPrefix(id, "PO-") || len(id) <= 3 {
		t.Errorf("unexpected id %q", id)
	}
}

func TestInit_RejectsOutOfRangeNode(t *testing.T) {
	if err := Init(5000); err == nil {
		t.Error("expected error for node id above 1023")
	}
	if err := Init(3); err != nil {
		t.Errorf("Init(3) error = %v", err)
	}
}
