package stats

import (
	"bytes"
	"testing"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Region", "Hits", "Share"}
	rows := [][]string{
		{"EB", "1250", "80.00%"},
		{"ES", "3", "0.19%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Region Hits  Share" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "EB     1250 80.00%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "ES        3  0.19%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestRenderTableTrimsTrailingPadding(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTable(&buf, []string{"Label", "X"}, [][]string{{"a"}}, nil); err != nil {
		t.Fatalf("RenderTable failed: %v", err)
	}
	if got := buf.String(); got != "Label X\na\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
