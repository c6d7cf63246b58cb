package persona

import (
	"sort"
	"testing"
)

func TestGetFallsBackToCalm(t *testing.T) {
	for _, key := range []string{"", "drill-sergeant", "CALM"} {
		if got := Get(key); got.Key != "calm" {
			t.Errorf("Get(%q).Key = %q, want calm", key, got.Key)
		}
	}
	if got := Get("motivational"); got.Key != "motivational" {
		t.Errorf("Get(motivational).Key = %q", got.Key)
	}
}

func TestAllOrderedWithPrompts(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("len(All()) = %d, want 4", len(all))
	}
	if !sort.SliceIsSorted(all, func(i, j int) bool { return all[i].Key < all[j].Key }) {
		t.Errorf("All() not ordered by key")
	}
	for _, p := range all {
		if p.PromptAddon == "" {
			t.Errorf("persona %q has no prompt addon", p.Key)
		}
	}
}
