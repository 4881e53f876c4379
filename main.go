package main

import (
	"flag"
	"fmt"

	"log"

	"github.com/golang/glog"
	"github.com/jroimartin/gocui"

	"tek4404/console"
	"tek4404/cpu"
	"tek4404/system"
)

var (
	romPath  = flag.String("rom", "boot.bin", "path to the 32KB boot ROM image")
	aciaAddr = flag.String("acia", "127.0.0.1:9090", "debug ACIA listen address, empty to disable")
	headless = flag.Bool("headless", false, "run without the GUI, terminal on stdin/stdout")
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if *headless {
		if err := runHeadless(*romPath, *aciaAddr); err != nil {
			glog.Exitf("tek4404: %v", err)
		}
		return
	}

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln("Couldn't create gui!")
	}
	defer g.Close()

	g.SetManagerFunc(layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		log.Panicln(err)
	}

	// start emulation
	g.Update(startTek)

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}

// start the 4404 --> RS-232 output to the terminal view, machine
// status to the status line
func startTek(g *gocui.Gui) error {
	statusView, err := g.View("status")
	if err != nil {
		return err
	}
	statusView.Clear()

	terminalView, err := g.View("terminal")
	if err != nil {
		return err
	}
	terminalView.Clear()

	fmt.Fprintf(statusView, "Starting Tektronix 4404 simulator..\n")

	sys, err := system.InitializeSystem(console.NewGui(g), cpu.Offline{}, *romPath, *aciaAddr)
	if err != nil {
		return err
	}

	sys.TerminalOutput(func(c uint8) {
		g.Update(func(g *gocui.Gui) error {
			fmt.Fprintf(terminalView, "%c", c)
			return nil
		})
	})

	terminalView.Editable = true
	terminalView.Editor = gocui.EditorFunc(
		func(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
			keyEvent(sys, key, ch)
		})
	if _, err := g.SetCurrentView("terminal"); err != nil {
		return err
	}

	go sys.Run()
	return nil
}

// keyEvent translates a gocui key event into a key press and release
// on the keyboard port. gocui reports special keys with ch == 0, so
// they map back to the control runes the keyboard table knows.
func keyEvent(sys *system.System, key gocui.Key, ch rune) {
	r := ch
	switch key {
	case gocui.KeyEnter:
		r = '\r'
	case gocui.KeySpace:
		r = ' '
	case gocui.KeyTab:
		r = '\t'
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		r = 0x08
	case gocui.KeyEsc:
		r = 0x1b
	}
	if r == 0 {
		return
	}
	sys.KeyDown(r)
	sys.KeyUp(r)
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> terminal
	if v, err := g.SetView("terminal", 0, 0, maxX-1, maxY-14); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Terminal"
		v.Autoscroll = true
	}

	// down -> status
	if v, err := g.SetView("status", 0, maxY-13, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Autoscroll = true
	}
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
