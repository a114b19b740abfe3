package config

import "testing"

func TestCleanFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ruined-tower", "ruined-tower"},
		{"50%_loot#1", "50_loot1"},
		{"{braces}", "braces"},
		{"a/b", "ab"},
		{"...hidden", "hidden"},
		{"%#", "_bad_file_name_"},
		{"", "_bad_file_name_"},
	}
	for _, tt := range tests {
		if got := CleanFileName(tt.in); got != tt.want {
			t.Errorf("CleanFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
