package acia

import (
	"net"
	"sync"

	"github.com/golang/glog"
)

// handshake is the Telnet negotiation sent to every client before any
// application data. It forces character mode and tells the client we
// will echo input. (IAC WILL ECHO, IAC WILL SUPPRESS-GO-AHEAD, IAC
// WONT LINEMODE)
var handshake = []byte{255, 251, 1, 255, 251, 3, 255, 252, 34}

const banner = "*** Welcome to the Tektronix 4404 simulator Debug ACIA ***\r\n"

// Server bridges the shared ACIA state to a single TCP client at a
// time.
type Server struct {
	state *State
}

// NewServer returns a server over the given shared state.
func NewServer(state *State) *Server {
	return &Server{state: state}
}

// Run listens on addr and serves clients until the listener fails.
func (s *Server) Run(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	glog.Infof("Listening for ACIA debug connections on %s", l.Addr())
	s.Serve(l)
	return nil
}

// Serve accepts connections from l. Only one client may be attached
// at a time; latecomers are told so and dropped without touching the
// active session's queues.
func (s *Server) Serve(l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			glog.Errorf("ACIA accept failed: %v", err)
			return
		}

		if s.state.Connected() {
			_, _ = conn.Write([]byte("Already connected. Goodbye.\r\n"))
			_ = conn.Close()
			continue
		}

		if _, err := conn.Write([]byte(banner)); err != nil {
			_ = conn.Close()
			continue
		}

		go s.process(conn)
	}
}

// process runs one client session: the Telnet handshake, then two
// duplex loops for the lifetime of the connection. Either loop
// observing an error marks the state disconnected, which terminates
// the other.
func (s *Server) process(conn net.Conn) {
	glog.Infof("Accepted ACIA connection from %s", conn.RemoteAddr())
	s.state.connect()

	if _, err := conn.Write(handshake); err != nil {
		glog.Errorf("ACIA handshake failed: %v", err)
		s.state.disconnect()
		_ = conn.Close()
		return
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// socket -> device
	go func() {
		defer wg.Done()
		buf := make([]byte, 32)
		for {
			n, err := conn.Read(buf)
			if err != nil || n == 0 {
				glog.V(1).Infof("ACIA read ended: %v", err)
				s.state.disconnect()
				return
			}
			for _, c := range buf[:n] {
				glog.V(2).Infof(">>> input (tcp to acia): queueing %02x", c)
				s.state.feed(c)
			}
		}
	}()

	// device -> socket. This is the only true suspension point: waitTx
	// blocks until the device pushes a byte or the session drops.
	// Closing the conn on the way out unblocks the read loop.
	go func() {
		defer wg.Done()
		defer conn.Close()
		for {
			c, ok := s.state.waitTx()
			if !ok {
				glog.V(1).Info("ACIA no longer connected")
				return
			}
			glog.V(2).Infof("<<< output (acia to tcp): sending out %02x", c)
			if _, err := conn.Write([]byte{c}); err != nil {
				glog.Errorf("ACIA write failed: %v", err)
				s.state.disconnect()
				return
			}
		}
	}()

	wg.Wait()
	glog.Infof("ACIA connection from %s closed", conn.RemoteAddr())
}
