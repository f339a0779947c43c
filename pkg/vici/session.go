package vici

import (
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/luscis/ipsecman/pkg/libol"
)

const (
	DefaultSocket  = "/var/run/charon.vici"
	DefaultTimeout = 10 * time.Second
	DefaultBuffer  = 64
)

var ErrTimeout = errors.New("no response before deadline")

type Options struct {
	Socket      string
	Timeout     time.Duration
	EventBuffer int
	Logger      logr.Logger
}

func (o *Options) Correct() {
	if o.Socket == "" {
		o.Socket = DefaultSocket
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = DefaultBuffer
	}
	if o.Logger.GetSink() == nil {
		o.Logger = NilLog()
	}
}

// NilLog discards wire tracing.
func NilLog() logr.Logger {
	return stdr.NewWithOptions(log.New(io.Discard, "", log.LstdFlags), stdr.Options{LogCaller: stdr.None})
}

// Event is an unsolicited message pushed by the daemon.
type Event struct {
	Name    string
	Message *Section
	Time    time.Time
}

type reply struct {
	packet *Packet
	err    error
}

// link is one dialed connection and its reader.
type link struct {
	conn    net.Conn
	replies chan reply
	done    chan struct{}
	err     error

	lock       sync.Mutex
	collect    string
	items      []*Section
	collectErr error
}

func (l *link) collecting(name string) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.collect == "" || l.collect != name {
		return false
	}
	return true
}

func (l *link) append(p *Packet) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.items = append(l.items, p.Message)
}

// fail keeps the first decode error seen while collecting.
func (l *link) fail(err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.collectErr == nil {
		l.collectErr = err
	}
}

func (l *link) startCollect(name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.collect = name
	l.items = nil
	l.collectErr = nil
}

func (l *link) stopCollect() ([]*Section, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	items, err := l.items, l.collectErr
	l.collect = ""
	l.items = nil
	l.collectErr = nil
	return items, err
}

// Session is a client of the daemon control socket. Exchanges are
// serialized: only one request is on the wire at a time, and replies are
// matched by order. Events are demultiplexed by a reader goroutine so
// they never satisfy a pending request.
type Session struct {
	opts     Options
	messager Messager
	out      *libol.SubLogger
	trace    logr.Logger

	lock       sync.Mutex
	link       *link
	registered []string
	closed     bool

	events     chan *Event
	statistics *libol.SafeStrInt64
}

func NewSession(opts Options) *Session {
	opts.Correct()
	return &Session{
		opts:       opts,
		messager:   NewStreamMessager(opts.Timeout),
		out:        libol.NewSubLogger("vici"),
		trace:      opts.Logger.WithName("vici"),
		events:     make(chan *Event, opts.EventBuffer),
		statistics: libol.NewSafeStrInt64(),
	}
}

// Dial returns a session with an established connection.
func Dial(opts Options) (*Session, error) {
	s := NewSession(opts)
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Socket() string {
	return s.opts.Socket
}

func (s *Session) unavailable(op string, err error) error {
	s.statistics.Add("failure", 1)
	return &UnavailableError{Socket: s.opts.Socket, Op: op, Err: err}
}

// connect returns the live link or dials a new one. Callers hold s.lock.
func (s *Session) connect() (*link, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.link != nil {
		select {
		case <-s.link.done:
			s.reset(s.link)
		default:
			return s.link, nil
		}
	}
	conn, err := net.DialTimeout("unix", s.opts.Socket, s.opts.Timeout)
	if err != nil {
		return nil, s.unavailable("dial", err)
	}
	s.statistics.Add("dial", 1)
	s.out.Debug("Session.connect: %s", s.opts.Socket)
	l := &link{
		conn:    conn,
		replies: make(chan reply, 8),
		done:    make(chan struct{}),
	}
	s.link = l
	libol.Go(func() { s.read(l) })
	for _, name := range s.registered {
		if err := s.register(l, name); err != nil {
			s.out.Warn("Session.connect: register %s: %s", name, err)
		}
	}
	return l, nil
}

// reset drops a link after a timeout or transport failure.
func (s *Session) reset(l *link) {
	if l == nil {
		return
	}
	_ = l.conn.Close()
	if s.link == l {
		s.link = nil
	}
}

func (s *Session) read(l *link) {
	defer close(l.done)
	for {
		p, err := s.messager.Receive(l.conn)
		if err != nil && p == nil {
			l.err = err
			s.out.Debug("Session.read: %s", err)
			return
		}
		if p.Type == EventPacket {
			if err != nil {
				s.statistics.Add("dropped", 1)
				s.out.Warn("Session.read: event %s: %s", p.Name, err)
				if l.collecting(p.Name) {
					l.fail(err)
				}
				continue
			}
			s.dispatch(l, p)
			continue
		}
		s.trace.V(1).Info("recv", "packet", p.String())
		select {
		case l.replies <- reply{packet: p, err: err}:
		default:
			s.statistics.Add("dropped", 1)
			s.out.Warn("Session.read: unexpected %s", p)
		}
	}
}

func (s *Session) dispatch(l *link, p *Packet) {
	s.statistics.Add("event", 1)
	if l.collecting(p.Name) {
		l.append(p)
		return
	}
	s.trace.V(1).Info("event", "name", p.Name)
	e := &Event{Name: p.Name, Message: p.Message, Time: time.Now()}
	select {
	case s.events <- e:
	default:
		s.statistics.Add("dropped", 1)
		s.out.Warn("Session.dispatch: %s dropped", p.Name)
	}
}

// exchange sends one packet and waits for the next reply on l.
func (s *Session) exchange(l *link, p *Packet) (*Packet, error) {
drain:
	for {
		select {
		case r := <-l.replies:
			s.out.Debug("Session.exchange: stale %v", r.packet)
		default:
			break drain
		}
	}
	s.trace.V(1).Info("send", "packet", p.String())
	if _, err := s.messager.Send(l.conn, p); err != nil {
		var pErr *ProtocolError
		if errors.As(err, &pErr) {
			return nil, err
		}
		s.reset(l)
		return nil, s.unavailable(p.Name, err)
	}
	s.statistics.Add("request", 1)
	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()
	select {
	case r := <-l.replies:
		return r.packet, r.err
	case <-l.done:
		s.reset(l)
		return nil, s.unavailable(p.Name, l.err)
	case <-timer.C:
		s.reset(l)
		return nil, s.unavailable(p.Name, ErrTimeout)
	}
}

func checkReply(command string, msg *Section) error {
	if v, ok := msg.Get("success"); ok && v.String() != "yes" {
		return &CommandError{Command: command, Message: msg.String("errmsg")}
	}
	return nil
}

func (s *Session) request(l *link, command string, msg *Section) (*Section, error) {
	p, err := s.exchange(l, &Packet{Type: CmdRequest, Name: command, Message: msg})
	if err != nil {
		return nil, err
	}
	switch p.Type {
	case CmdResponse:
	case CmdUnknown:
		return nil, &CommandError{Command: command, Message: "unknown command"}
	default:
		return nil, &ProtocolError{Op: command, Reason: "unexpected " + p.Type.String()}
	}
	if err := checkReply(command, p.Message); err != nil {
		return nil, err
	}
	return p.Message, nil
}

// Call runs a command and returns its reply. A reply with success other
// than "yes" is returned as a *CommandError.
func (s *Session) Call(command string, msg *Section) (*Section, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.connect()
	if err != nil {
		return nil, err
	}
	return s.request(l, command, msg)
}

func (s *Session) register(l *link, name string) error {
	p, err := s.exchange(l, &Packet{Type: EventRegister, Name: name})
	if err != nil {
		return err
	}
	switch p.Type {
	case EventConfirm:
		return nil
	case EventUnknown:
		return &CommandError{Command: "register " + name, Message: "unknown event"}
	}
	return &ProtocolError{Op: "register " + name, Reason: "unexpected " + p.Type.String()}
}

func (s *Session) unregister(l *link, name string) error {
	p, err := s.exchange(l, &Packet{Type: EventUnregister, Name: name})
	if err != nil {
		return err
	}
	switch p.Type {
	case EventConfirm:
		return nil
	case EventUnknown:
		return &CommandError{Command: "unregister " + name, Message: "unknown event"}
	}
	return &ProtocolError{Op: "unregister " + name, Reason: "unexpected " + p.Type.String()}
}

// Stream runs a command that answers with a series of events followed by
// the reply, and returns the event messages in order. A streamed event
// that fails to decode fails the whole stream with a *ProtocolError.
func (s *Session) Stream(command, event string, msg *Section) ([]*Section, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.connect()
	if err != nil {
		return nil, err
	}
	if err := s.register(l, event); err != nil {
		return nil, err
	}
	l.startCollect(event)
	_, err = s.request(l, command, msg)
	items, cErr := l.stopCollect()
	if s.link == l {
		if uErr := s.unregister(l, event); uErr != nil {
			s.out.Warn("Session.Stream: %s", uErr)
		}
	}
	if err != nil {
		return nil, err
	}
	if cErr != nil {
		var pErr *ProtocolError
		if errors.As(cErr, &pErr) {
			return nil, pErr
		}
		return nil, &ProtocolError{Op: command, Reason: cErr.Error()}
	}
	return items, nil
}

// Register subscribes to events. Subscriptions survive a redial.
func (s *Session) Register(names ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	l, err := s.connect()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := s.register(l, name); err != nil {
			return err
		}
		if !hasString(s.registered, name) {
			s.registered = append(s.registered, name)
		}
	}
	return nil
}

func (s *Session) Unregister(names ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, name := range names {
		s.registered = removeString(s.registered, name)
	}
	if s.link == nil {
		return nil
	}
	for _, name := range names {
		if err := s.unregister(s.link, name); err != nil {
			return err
		}
	}
	return nil
}

// Connect dials the daemon unless a connection is up.
func (s *Session) Connect() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, err := s.connect()
	return err
}

// Events delivers messages of registered events. Events arriving while the
// channel is full are dropped and counted.
func (s *Session) Events() <-chan *Event {
	return s.events
}

// Lost is closed when the current connection goes away. It is closed
// already when there is no connection.
func (s *Session) Lost() <-chan struct{} {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.link == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.link.done
}

func (s *Session) Statistics() map[string]int64 {
	return s.statistics.Data()
}

func (s *Session) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.link != nil {
		s.reset(s.link)
	}
	return nil
}

func hasString(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}

func removeString(items []string, value string) []string {
	result := items[:0]
	for _, item := range items {
		if item != value {
			result = append(result, item)
		}
	}
	return result
}
