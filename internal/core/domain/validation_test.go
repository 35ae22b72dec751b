package domain

import "testing"

func TestIsValidPath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"/BLM Archives/LE-12345", true},
		{"/State Workspace/Archive/12345", true},
		{"relative/path", false},
		{"/a/../b", false},
		{"", false},
	}

	for _, tt := range tests {
		if IsValidPath(tt.path) != tt.valid {
			t.Errorf("IsValidPath(%s) = %v; want %v", tt.path, IsValidPath(tt.path), tt.valid)
		}
	}
}

func TestIsValidLeaseNumber(t *testing.T) {
	tests := []struct {
		leaseNumber string
		valid       bool
	}{
		{"LE-12345", true},
		{"NM 02345", true},
		{"LE/12345", false},
		{`LE\12345`, false},
		{"", false},
	}

	for _, tt := range tests {
		if IsValidLeaseNumber(tt.leaseNumber) != tt.valid {
			t.Errorf("IsValidLeaseNumber(%s) = %v; want %v", tt.leaseNumber, IsValidLeaseNumber(tt.leaseNumber), tt.valid)
		}
	}
}

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/State Workspace/Archive", "/State Workspace/Archive"},
		{"State Workspace/Archive/", "/State Workspace/Archive"},
		{"//double//", "/double"},
		{"   /padded/  ", "/padded"},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := NormalizeBasePath(tt.in); got != tt.want {
			t.Errorf("NormalizeBasePath(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/a/b", "/a/b"},
		{"/a//b/", "/a/b"},
		{"a/b", "/a/b"},
		{"", "/"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSubfolders(t *testing.T) {
	got := NormalizeSubfolders([]string{"/Documents/", " MiscIndex", "", "  ", "Runsheets"})
	want := []string{"Documents", "MiscIndex", "Runsheets"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeSubfolders returned %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeSubfolders[%d] = %q; want %q", i, got[i], want[i])
		}
	}
}
