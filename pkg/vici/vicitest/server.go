// Package vicitest runs an in-process daemon that speaks the control
// protocol on a unix socket, for tests of clients.
package vicitest

import (
	"encoding/binary"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/luscis/ipsecman/pkg/vici"
)

// CommandFunc answers one request. Returning nil sends no reply.
type CommandFunc func(c *Conn, req *vici.Section) *vici.Section

var DefaultEvents = []string{"list-conn", "list-sa", "ike-updown", "child-updown", "log"}

type Server struct {
	Path string

	listener net.Listener
	messager *vici.StreamMessager
	lock     sync.Mutex
	handlers map[string]CommandFunc
	events   map[string]bool
	conns    map[*Conn]bool
	calls    []string
	closed   bool
	wg       sync.WaitGroup
}

// NewServer listens on a socket in a temporary directory and stops when
// the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	dir, err := os.MkdirTemp("", "vicitest")
	if err != nil {
		t.Fatalf("vicitest: %s", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "charon.vici")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("vicitest: listen %s: %s", path, err)
	}
	s := &Server{
		Path:     path,
		listener: listener,
		messager: vici.NewStreamMessager(0),
		handlers: make(map[string]CommandFunc, 16),
		events:   make(map[string]bool, 8),
		conns:    make(map[*Conn]bool, 4),
	}
	for _, name := range DefaultEvents {
		s.events[name] = true
	}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Handle(command string, fn CommandFunc) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handlers[command] = fn
}

// Calls returns the names of commands received so far, in order.
func (s *Server) Calls() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string{}, s.calls...)
}

func (s *Server) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = nil
}

// Broadcast sends an event to every connection registered for it.
func (s *Server) Broadcast(name string, msg *vici.Section) {
	s.lock.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.lock.Unlock()
	for _, c := range conns {
		c.Emit(name, msg)
	}
}

// Drop closes every client connection.
func (s *Server) Drop() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.conns {
		_ = c.conn.Close()
	}
}

func (s *Server) Close() {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	_ = s.listener.Close()
	s.Drop()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		c := &Conn{
			server:     s,
			conn:       conn,
			registered: make(map[string]bool, 4),
		}
		s.lock.Lock()
		if s.closed {
			s.lock.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[c] = true
		s.wg.Add(1)
		s.lock.Unlock()
		go c.loop()
	}
}

func (s *Server) handler(command string) CommandFunc {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls = append(s.calls, command)
	return s.handlers[command]
}

// Conn is one client connection seen by the server.
type Conn struct {
	server     *Server
	conn       net.Conn
	lock       sync.Mutex
	registered map[string]bool
}

func (c *Conn) send(p *vici.Packet) {
	c.lock.Lock()
	defer c.lock.Unlock()
	_, _ = c.server.messager.Send(c.conn, p)
}

// Emit sends an event when the client registered for it.
func (c *Conn) Emit(name string, msg *vici.Section) {
	c.lock.Lock()
	ok := c.registered[name]
	c.lock.Unlock()
	if ok {
		c.send(&vici.Packet{Type: vici.EventPacket, Name: name, Message: msg})
	}
}

// WriteRaw frames payload with a length header and writes it unchecked.
func (c *Conn) WriteRaw(payload []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()
	buf := make([]byte, vici.HlSize+len(payload))
	binary.BigEndian.PutUint32(buf[:vici.HlSize], uint32(len(payload)))
	copy(buf[vici.HlSize:], payload)
	_, _ = c.conn.Write(buf)
}

func (c *Conn) loop() {
	defer c.server.wg.Done()
	defer func() {
		c.server.lock.Lock()
		delete(c.server.conns, c)
		c.server.lock.Unlock()
		_ = c.conn.Close()
	}()
	for {
		p, err := c.server.messager.Receive(c.conn)
		if err != nil {
			return
		}
		switch p.Type {
		case vici.CmdRequest:
			fn := c.server.handler(p.Name)
			if fn == nil {
				c.send(&vici.Packet{Type: vici.CmdUnknown})
				continue
			}
			if resp := fn(c, p.Message); resp != nil {
				c.send(&vici.Packet{Type: vici.CmdResponse, Message: resp})
			}
		case vici.EventRegister, vici.EventUnregister:
			c.server.lock.Lock()
			known := c.server.events[p.Name]
			c.server.lock.Unlock()
			if !known {
				c.send(&vici.Packet{Type: vici.EventUnknown})
				continue
			}
			c.lock.Lock()
			if p.Type == vici.EventRegister {
				c.registered[p.Name] = true
			} else {
				delete(c.registered, p.Name)
			}
			c.lock.Unlock()
			c.send(&vici.Packet{Type: vici.EventConfirm})
		}
	}
}

func Success() *vici.Section {
	return vici.NewSection().SetString("success", "yes")
}

func Failure(errmsg string) *vici.Section {
	return vici.NewSection().SetString("success", "no").SetString("errmsg", errmsg)
}
