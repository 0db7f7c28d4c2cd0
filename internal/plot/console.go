package plot

import (
	"fmt"
	"io"
	"sync"
)

// Console is a reference Sink that renders graphs as text sparklines,
// one line per graph, to an io.Writer (typically os.Stdout). It stands
// in for the libplot/X11 window of original_source/src/plotting.c.
type Console struct {
	mu     sync.Mutex
	graphs [][]int16
	maxX   int
	w      io.Writer
}

var sparkLevels = []rune(" .:-=+*#%@")

// NewConsole creates a console sink with nGraphs independent graphs,
// each holding maxX points.
func NewConsole(nGraphs, maxX int, w io.Writer) *Console {
	graphs := make([][]int16, nGraphs)
	for i := range graphs {
		graphs[i] = make([]int16, maxX)
	}
	return &Console{graphs: graphs, maxX: maxX, w: w}
}

// SetPoint writes value at position x on graph graphID.
func (c *Console) SetPoint(graphID int, x int, value int16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if graphID < 0 || graphID >= len(c.graphs) || x < 0 || x >= c.maxX {
		return
	}
	c.graphs[graphID][x] = value
}

// Redraw renders every graph as one sparkline row.
func (c *Console) Redraw() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, g := range c.graphs {
		min, max := g[0], g[0]
		for _, v := range g {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		span := int(max) - int(min)
		if span == 0 {
			span = 1
		}

		line := make([]rune, len(g))
		for i, v := range g {
			level := (int(v) - int(min)) * (len(sparkLevels) - 1) / span
			line[i] = sparkLevels[level]
		}
		fmt.Fprintf(c.w, "[%d] %s\n", id, string(line))
	}
}
