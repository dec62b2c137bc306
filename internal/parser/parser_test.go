package parser

import "testing"

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"a.md", false},
		{"A.MARKDOWN", false},
		{"a.txt", false},
		{"a.htm", false},
		{"a.pdf", false},
		{"a.docx", false},
		{"a.csv", true},
		{"noext", true},
	}
	for _, tt := range tests {
		_, err := ForFile(tt.filename)
		if (err != nil) != tt.wantErr {
			t.Errorf("ForFile(%q): err=%v, wantErr=%v", tt.filename, err, tt.wantErr)
		}
		if IsSupportedExtension(tt.filename) == tt.wantErr {
			t.Errorf("IsSupportedExtension(%q) disagrees with ForFile", tt.filename)
		}
	}
}

func TestParseFile(t *testing.T) {
	doc, err := ParseFile([]byte("# Hi\n"), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Hi" {
		t.Errorf("expected title %q, got %q", "Hi", doc.Title)
	}
	if _, err := ParseFile([]byte("a,b"), "x.csv"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
