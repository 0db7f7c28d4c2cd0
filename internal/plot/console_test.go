package plot

import (
	"bytes"
	"strings"
	"testing"
)

func TestRedrawProducesOneLinePerGraph(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(2, 8, &buf)

	for x := 0; x < 8; x++ {
		c.SetPoint(0, x, int16(x))
		c.SetPoint(1, x, int16(8-x))
	}
	c.Redraw()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[0] ") || !strings.HasPrefix(lines[1], "[1] ") {
		t.Fatalf("unexpected graph labeling: %q", lines)
	}
}

func TestSetPointIgnoresOutOfRangeCoordinates(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(1, 4, &buf)

	c.SetPoint(5, 0, 1)  // out-of-range graph id
	c.SetPoint(0, 99, 1) // out-of-range x
	c.Redraw()

	if buf.Len() == 0 {
		t.Fatalf("expected Redraw to still render the valid graph")
	}
}
