package vici

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/luscis/ipsecman/pkg/libol"
)

const (
	HlSize    = 0x04
	MaxPacket = 512 * 1024
)

// Messager frames packets on a stream connection: a 4-byte big-endian
// length followed by the packet payload.
type Messager interface {
	Send(conn net.Conn, p *Packet) (int, error)
	Receive(conn net.Conn) (*Packet, error)
}

type StreamMessager struct {
	timeout time.Duration // write deadline, zero means none.
}

func NewStreamMessager(timeout time.Duration) *StreamMessager {
	return &StreamMessager{timeout: timeout}
}

func (s *StreamMessager) write(conn net.Conn, tmp []byte) (int, error) {
	if s.timeout != 0 {
		err := conn.SetWriteDeadline(time.Now().Add(s.timeout))
		if err != nil {
			return 0, err
		}
	}
	return conn.Write(tmp)
}

func (s *StreamMessager) writeX(conn net.Conn, buf []byte) error {
	if conn == nil {
		return libol.NewErr("connection is nil")
	}
	offset := 0
	size := len(buf)
	for offset < size {
		n, err := s.write(conn, buf[offset:])
		if err != nil {
			return err
		}
		offset += n
	}
	return nil
}

func (s *StreamMessager) Send(conn net.Conn, p *Packet) (int, error) {
	data, err := EncodePacket(p)
	if err != nil {
		return 0, err
	}
	if len(data) > MaxPacket {
		return 0, &ProtocolError{Op: "encode", Reason: "packet too large"}
	}
	buf := make([]byte, HlSize+len(data))
	binary.BigEndian.PutUint32(buf[:HlSize], uint32(len(data)))
	copy(buf[HlSize:], data)
	if err := s.writeX(conn, buf); err != nil {
		return 0, err
	}
	return len(buf), nil
}

// Receive blocks until one whole packet arrived. A transport error or an
// oversized length leaves the stream unusable; a ProtocolError from the
// payload is returned together with the partially decoded packet and the
// stream stays aligned.
func (s *StreamMessager) Receive(conn net.Conn) (*Packet, error) {
	if conn == nil {
		return nil, libol.NewErr("connection is nil")
	}
	var head [HlSize]byte
	if _, err := io.ReadFull(conn, head[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(head[:])
	if size == 0 || size > MaxPacket {
		return nil, &FramingError{Size: size}
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, err
	}
	return DecodePacket(data)
}

// FramingError is a length header the stream cannot recover from.
type FramingError struct {
	Size uint32
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("vici: invalid packet length %d", e.Size)
}
