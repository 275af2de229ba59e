// ABOUTME: Tests for code normalization and role validation
// ABOUTME: Covers the normalized forms every other layer depends on

package identity

import "testing"

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ag001", "AG001"},
		{"  AG001  ", "AG001"},
		{"Sup001", "SUP001"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCode(tt.in); got != tt.want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleAgent.Valid() {
		t.Error("agent role should be valid")
	}
	if !RoleSupervisor.Valid() {
		t.Error("supervisor role should be valid")
	}
	if Role("admin").Valid() {
		t.Error("unknown role should be invalid")
	}
	if Role("Agent").Valid() {
		t.Error("role check is case-sensitive")
	}
}
