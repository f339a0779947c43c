package vici

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Message element types.
const (
	elemSectionStart = 1
	elemSectionEnd   = 2
	elemKeyValue     = 3
	elemListStart    = 4
	elemListItem     = 5
	elemListEnd      = 6
)

const (
	maxNameLen  = 0xff
	maxValueLen = 0xffff
)

type PacketType uint8

const (
	CmdRequest      PacketType = 0
	CmdResponse     PacketType = 1
	CmdUnknown      PacketType = 2
	EventRegister   PacketType = 3
	EventUnregister PacketType = 4
	EventConfirm    PacketType = 5
	EventUnknown    PacketType = 6
	EventPacket     PacketType = 7
)

func (t PacketType) String() string {
	switch t {
	case CmdRequest:
		return "cmd-request"
	case CmdResponse:
		return "cmd-response"
	case CmdUnknown:
		return "cmd-unknown"
	case EventRegister:
		return "event-register"
	case EventUnregister:
		return "event-unregister"
	case EventConfirm:
		return "event-confirm"
	case EventUnknown:
		return "event-unknown"
	case EventPacket:
		return "event"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Named reports whether packets of this type carry a name.
func (t PacketType) Named() bool {
	switch t {
	case CmdRequest, EventRegister, EventUnregister, EventPacket:
		return true
	}
	return false
}

func (t PacketType) valid() bool {
	return t <= EventPacket
}

type Packet struct {
	Type    PacketType
	Name    string
	Message *Section
}

func (p *Packet) String() string {
	if p.Type.Named() {
		return fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	return p.Type.String()
}

func writeName(buf *bytes.Buffer, name string) error {
	if len(name) == 0 || len(name) > maxNameLen {
		return &ProtocolError{Op: "encode", Reason: fmt.Sprintf("bad name length %d", len(name))}
	}
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	return nil
}

func writeValue(buf *bytes.Buffer, value string) error {
	if len(value) > maxValueLen {
		return &ProtocolError{Op: "encode", Reason: fmt.Sprintf("value too long %d", len(value))}
	}
	var size [2]byte
	binary.BigEndian.PutUint16(size[:], uint16(len(value)))
	buf.Write(size[:])
	buf.WriteString(value)
	return nil
}

func encodeSection(buf *bytes.Buffer, s *Section) error {
	for _, key := range s.Keys() {
		v, _ := s.Get(key)
		switch v.Kind() {
		case KindScalar:
			buf.WriteByte(elemKeyValue)
			if err := writeName(buf, key); err != nil {
				return err
			}
			if err := writeValue(buf, v.String()); err != nil {
				return err
			}
		case KindList:
			buf.WriteByte(elemListStart)
			if err := writeName(buf, key); err != nil {
				return err
			}
			for _, item := range v.Strings() {
				buf.WriteByte(elemListItem)
				if err := writeValue(buf, item); err != nil {
					return err
				}
			}
			buf.WriteByte(elemListEnd)
		case KindSection:
			buf.WriteByte(elemSectionStart)
			if err := writeName(buf, key); err != nil {
				return err
			}
			if err := encodeSection(buf, v.Section()); err != nil {
				return err
			}
			buf.WriteByte(elemSectionEnd)
		default:
			return &ProtocolError{Op: "encode", Reason: "invalid value for " + key}
		}
	}
	return nil
}

// EncodeMessage serializes a section tree into message elements. A nil
// section encodes as an empty message.
func EncodeMessage(s *Section) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encodeSection(buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type decoder struct {
	data   []byte
	offset int
}

func (d *decoder) fail(format string, v ...interface{}) error {
	reason := fmt.Sprintf(format, v...)
	return &ProtocolError{Op: "decode", Reason: fmt.Sprintf("%s at offset %d", reason, d.offset)}
}

func (d *decoder) byte() (byte, error) {
	if d.offset >= len(d.data) {
		return 0, d.fail("truncated element")
	}
	b := d.data[d.offset]
	d.offset++
	return b, nil
}

func (d *decoder) name() (string, error) {
	size, err := d.byte()
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", d.fail("empty name")
	}
	end := d.offset + int(size)
	if end > len(d.data) {
		return "", d.fail("truncated name")
	}
	name := string(d.data[d.offset:end])
	d.offset = end
	return name, nil
}

func (d *decoder) value() (string, error) {
	if d.offset+2 > len(d.data) {
		return "", d.fail("truncated value length")
	}
	size := int(binary.BigEndian.Uint16(d.data[d.offset : d.offset+2]))
	d.offset += 2
	end := d.offset + size
	if end > len(d.data) {
		return "", d.fail("truncated value")
	}
	value := string(d.data[d.offset:end])
	d.offset = end
	return value, nil
}

// DecodeMessage parses message elements into a section tree.
func DecodeMessage(data []byte) (*Section, error) {
	d := &decoder{data: data}
	root := NewSection()
	stack := []*Section{root}

	var list []string
	listName := ""
	inList := false

	for d.offset < len(d.data) {
		elem, _ := d.byte()
		cur := stack[len(stack)-1]
		if inList && elem != elemListItem && elem != elemListEnd {
			return nil, d.fail("element %d inside list %s", elem, listName)
		}
		switch elem {
		case elemSectionStart:
			name, err := d.name()
			if err != nil {
				return nil, err
			}
			sub := NewSection()
			cur.SetSection(name, sub)
			stack = append(stack, sub)
		case elemSectionEnd:
			if len(stack) == 1 {
				return nil, d.fail("unbalanced section end")
			}
			stack = stack[:len(stack)-1]
		case elemKeyValue:
			name, err := d.name()
			if err != nil {
				return nil, err
			}
			value, err := d.value()
			if err != nil {
				return nil, err
			}
			cur.SetString(name, value)
		case elemListStart:
			name, err := d.name()
			if err != nil {
				return nil, err
			}
			inList = true
			listName = name
			list = []string{}
		case elemListItem:
			if !inList {
				return nil, d.fail("list item outside of list")
			}
			value, err := d.value()
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		case elemListEnd:
			if !inList {
				return nil, d.fail("unbalanced list end")
			}
			cur.SetList(listName, list...)
			inList = false
		default:
			return nil, d.fail("unknown element type %d", elem)
		}
	}
	if inList {
		return nil, d.fail("unterminated list %s", listName)
	}
	if len(stack) != 1 {
		return nil, d.fail("unterminated section")
	}
	return root, nil
}

// EncodePacket builds the packet payload without the length header.
func EncodePacket(p *Packet) ([]byte, error) {
	if !p.Type.valid() {
		return nil, &ProtocolError{Op: "encode", Reason: "invalid packet type " + p.Type.String()}
	}
	buf := &bytes.Buffer{}
	buf.WriteByte(byte(p.Type))
	if p.Type.Named() {
		if err := writeName(buf, p.Name); err != nil {
			return nil, err
		}
	}
	if err := encodeSection(buf, p.Message); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePacket parses a packet payload. On a message error the returned
// packet still carries the type and name so the caller can route it.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, &ProtocolError{Op: "decode", Reason: "empty packet"}
	}
	p := &Packet{Type: PacketType(data[0])}
	if !p.Type.valid() {
		return p, &ProtocolError{Op: "decode", Reason: "invalid packet type " + p.Type.String()}
	}
	body := data[1:]
	if p.Type.Named() {
		d := &decoder{data: body}
		name, err := d.name()
		if err != nil {
			return p, err
		}
		p.Name = name
		body = body[d.offset:]
	}
	msg, err := DecodeMessage(body)
	if err != nil {
		return p, err
	}
	p.Message = msg
	return p, nil
}
