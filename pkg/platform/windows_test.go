// SPDX-License-Identifier: MPL-2.0

package platform

import "testing"

func TestIsWindowsReservedName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"con", true},
		{"CON", true},
		{"Nul", true},
		{"com1", true},
		{"lpt9", true},
		{"aux.js", true},
		{"node_modules", false},
		{"console", false},
		{"com10", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsWindowsReservedName(tt.input); got != tt.want {
			t.Errorf("IsWindowsReservedName(%q): expected %v, got %v", tt.input, tt.want, got)
		}
	}
}
