package intent

import "testing"

func TestFiltersCanonicalOmitsAbsentKeys(t *testing.T) {
	f := Filters{CompanySize: "SMB", Roles: []string{"CTO"}}
	got := f.Canonical()
	if len(got) != 2 {
		t.Fatalf("expected 2 present keys, got %d: %+v", len(got), got)
	}
	if got["company_size"] != "SMB" {
		t.Fatalf("unexpected company_size: %v", got["company_size"])
	}
	if _, ok := got["industries"]; ok {
		t.Fatalf("expected industries absent, got %v", got["industries"])
	}
}

func TestFiltersCanonicalEmptyYieldsEmptyMap(t *testing.T) {
	got := Filters{}.Canonical()
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %+v", got)
	}
}
