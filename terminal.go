package main

import (
	"os"

	"golang.org/x/term"

	"tek4404/console"
	"tek4404/cpu"
	"tek4404/system"
)

// runHeadless runs the machine with the RS-232 terminal bound to the
// process's stdin and stdout. Stdin switches to raw mode so control
// characters reach the keyboard port instead of the host tty; Ctrl-C
// still exits, handled here before the byte is forwarded.
func runHeadless(romPath, aciaAddr string) error {
	sys, err := system.InitializeSystem(console.NewSimple(), cpu.Offline{}, romPath, aciaAddr)
	if err != nil {
		return err
	}

	sys.TerminalOutput(func(c uint8) {
		os.Stdout.Write([]byte{c})
	})

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		old, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, old)
	}

	go sys.Run()

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return err
		}
		c := rune(buf[0])
		if c == 0x03 {
			return nil
		}
		sys.KeyDown(c)
		sys.KeyUp(c)
	}
}
