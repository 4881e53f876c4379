package console

import (
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

/*
Status console for the simulator. The console runs in a goroutine and
receives status lines from the rest of the machine over a string
channel, so device code can report from any goroutine without touching
the GUI directly.
*/

// Console is the sink for simulator status messages.
type Console interface {
	WriteConsole(msg string) error
}

// Gui is a console backed by the gocui status view.
type Gui struct {
	consoleOut  chan string // string channel, to which the console data is sent to
	g           *gocui.Gui  // main gocui GUI object
	v           *gocui.View // gocui view of the status console
	currentLine int         // counter to keep the position of the cursor
}

// NewGui returns a pointer to the new console and runs the
// initialization procedure:
func NewGui(g *gocui.Gui) *Gui {
	c := new(Gui)
	c.consoleOut = make(chan string)
	c.g = g
	c.v, _ = g.View("status")
	c.initConsole()
	return c
}

// initConsole starts the goroutine pumping messages into the view
func (c *Gui) initConsole() {
	go func() {
		for {
			s := <-c.consoleOut
			c.g.Update(func(g *gocui.Gui) error {
				fmt.Fprintf(c.v, "%s", s)
				return nil
			})
		}
	}()
}

// WriteConsole displays a string on the console
func (c *Gui) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.consoleOut <- line + "\n"
			c.v.MoveCursor(0, 1, true)
			c.currentLine++
		}
	}
	return nil
}
