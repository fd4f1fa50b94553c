package extract_test

import (
	"testing"

	"github.com/jonathanprocter/insight-atlas-server/internal/extract"
)

func TestText_PlainKinds(t *testing.T) {
	for _, kind := range []string{"txt", "md", "markdown", ""} {
		got, err := extract.Text([]byte("hello source"), kind)
		if err != nil {
			t.Fatalf("Text(%q) errored: %v", kind, err)
		}
		if got != "hello source" {
			t.Errorf("Text(%q) = %q, want %q", kind, got, "hello source")
		}
	}
}

func TestText_KindIsCaseInsensitive(t *testing.T) {
	got, err := extract.Text([]byte("x"), "TXT")
	if err != nil {
		t.Fatalf("Text errored: %v", err)
	}
	if got != "x" {
		t.Errorf("got %q", got)
	}
}

func TestText_UnsupportedKind(t *testing.T) {
	if _, err := extract.Text([]byte("x"), "docx"); err == nil {
		t.Error("Expected error for unsupported kind")
	}
}

func TestText_InvalidPDF(t *testing.T) {
	if _, err := extract.Text([]byte("not a pdf"), "pdf"); err == nil {
		t.Error("Expected error for malformed PDF bytes")
	}
}
