package console

import (
	"os"
	"strings"
)

// Simple is a console that writes status lines straight to stdout.
// Used in headless mode, where there is no GUI to own the terminal.
type Simple struct {
	consoleOut  chan string // string channel, to which the console data is sent to
	currentLine int         // counter to keep the position of the cursor
}

// NewSimple returns a pointer to the new console and runs the
// initialization procedure:
func NewSimple() *Simple {
	c := new(Simple)
	c.consoleOut = make(chan string)
	c.initSimple()
	return c
}

// initSimple starts the goroutine draining messages to stdout
func (c *Simple) initSimple() {
	go func() {
		for {
			s := <-c.consoleOut
			os.Stdout.Write([]byte(s))
		}
	}()
}

// WriteConsole displays a string on the console
func (c *Simple) WriteConsole(msg string) error {
	for _, line := range strings.Split(msg, "\n") {
		if line != "" {
			c.consoleOut <- line + "\r\n"
			c.currentLine++
		}
	}
	return nil
}
