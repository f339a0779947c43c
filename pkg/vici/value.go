package vici

import (
	"encoding/json"
	"sort"
	"strconv"
)

type Kind uint8

const (
	KindScalar Kind = iota + 1
	KindList
	KindSection
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	case KindSection:
		return "section"
	}
	return "invalid"
}

// Value is one node of a message tree: a scalar, a list of scalars or a
// nested section. Scalars are kept as text; callers parse numbers.
type Value struct {
	kind    Kind
	scalar  string
	list    []string
	section *Section
}

func Scalar(value string) Value {
	return Value{kind: KindScalar, scalar: value}
}

func List(items ...string) Value {
	return Value{kind: KindList, list: append([]string{}, items...)}
}

func Nested(s *Section) Value {
	if s == nil {
		s = NewSection()
	}
	return Value{kind: KindSection, section: s}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsValid() bool {
	return v.kind != 0
}

// String returns the scalar text, or "" for lists and sections.
func (v Value) String() string {
	return v.scalar
}

// Strings returns list items; a scalar is returned as a one-item list.
func (v Value) Strings() []string {
	switch v.kind {
	case KindList:
		return append([]string{}, v.list...)
	case KindScalar:
		return []string{v.scalar}
	}
	return nil
}

func (v Value) Section() *Section {
	return v.section
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return v.scalar == o.scalar
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case KindSection:
		return v.section.Equal(o.section)
	}
	return true
}

func (v Value) native() interface{} {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindList:
		return v.Strings()
	case KindSection:
		return v.section.ToMap()
	}
	return nil
}

// Section is a named map of values. Key order is kept for encoding but
// carries no meaning.
type Section struct {
	keys   []string
	values map[string]Value
}

func NewSection() *Section {
	return &Section{
		values: make(map[string]Value, 8),
	}
}

// Set stores value under key, replacing a previous value in place.
func (s *Section) Set(key string, value Value) *Section {
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return s
}

func (s *Section) SetString(key, value string) *Section {
	return s.Set(key, Scalar(value))
}

func (s *Section) SetList(key string, items ...string) *Section {
	return s.Set(key, List(items...))
}

func (s *Section) SetSection(key string, sub *Section) *Section {
	return s.Set(key, Nested(sub))
}

func (s *Section) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

func (s *Section) Get(key string) (Value, bool) {
	if s == nil {
		return Value{}, false
	}
	v, ok := s.values[key]
	return v, ok
}

func (s *Section) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *Section) String(key string) string {
	v, _ := s.Get(key)
	return v.String()
}

// Uint parses a decimal scalar. Missing or malformed values read as 0.
func (s *Section) Uint(key string) uint64 {
	v, ok := s.Get(key)
	if !ok || v.kind != KindScalar {
		return 0
	}
	n, err := strconv.ParseUint(v.scalar, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Section) Int(key string) int64 {
	v, ok := s.Get(key)
	if !ok || v.kind != KindScalar {
		return 0
	}
	n, err := strconv.ParseInt(v.scalar, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (s *Section) List(key string) []string {
	v, _ := s.Get(key)
	return v.Strings()
}

func (s *Section) Section(key string) *Section {
	v, _ := s.Get(key)
	return v.section
}

func (s *Section) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s.keys...)
}

func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Equal compares two sections ignoring key order.
func (s *Section) Equal(o *Section) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, k := range s.Keys() {
		a, _ := s.Get(k)
		b, ok := o.Get(k)
		if !ok || !a.Equal(b) {
			return false
		}
	}
	return true
}

// ToMap converts the tree into string, []string and map[string]interface{}
// nodes.
func (s *Section) ToMap() map[string]interface{} {
	data := make(map[string]interface{}, s.Len())
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		data[k] = v.native()
	}
	return data
}

func (s *Section) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.ToMap())
}

// FromMap builds a section from nested string, []string and
// map[string]interface{} values. Map keys are added in sorted order.
func FromMap(data map[string]interface{}) (*Section, error) {
	s := NewSection()
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			s.SetString(k, v)
		case int:
			s.SetString(k, strconv.Itoa(v))
		case int64:
			s.SetString(k, strconv.FormatInt(v, 10))
		case uint64:
			s.SetString(k, strconv.FormatUint(v, 10))
		case bool:
			s.SetString(k, FormatBool(v))
		case []string:
			s.SetList(k, v...)
		case []interface{}:
			items := make([]string, 0, len(v))
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, &ProtocolError{Op: "encode", Reason: "list item of " + k + " is not text"}
				}
				items = append(items, str)
			}
			s.SetList(k, items...)
		case map[string]interface{}:
			sub, err := FromMap(v)
			if err != nil {
				return nil, err
			}
			s.SetSection(k, sub)
		case *Section:
			s.SetSection(k, v)
		default:
			return nil, &ProtocolError{Op: "encode", Reason: "unsupported value for " + k}
		}
	}
	return s, nil
}

// FormatBool renders a boolean the way the daemon expects it.
func FormatBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
