package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

const tlvHeaderLen = 4 // tag(2) + length(2)

// Kind is the decoded representation of a TLV value.
type Kind uint8

const (
	KindU8 Kind = iota + 1
	KindU16
	KindU32
	KindU64
	KindF32
	KindString
	KindNested
)

// tagKinds is the closed tag table. Tags absent here decode as UTF-8
// strings.
var tagKinds = map[string]Kind{
	TagYear:    KindU8,
	TagMonth:   KindU8, // also the minute tag; both are "MM"
	TagDay:     KindU8,
	TagWeekday: KindU8,
	TagHour:    KindU8,
	TagSecond:  KindU8,
	TagAlarmID: KindU8,
	TagStatus:  KindU8,
	TagErrorCode: KindU8,

	TagMaxCount: KindU16,

	TagTimestamp: KindU64,
	TagTimeStart: KindU64,
	TagTimeEnd:   KindU64,

	TagTemperature: KindF32,
	TagAlarmLow:    KindF32,
	TagAlarmHigh:   KindF32,

	TagData:      KindNested,
	TagAlarmList: KindNested,
	TagAlarmItem: KindNested,
	TagLogList:   KindNested,
}

// KindOf returns the decode kind for tag, defaulting to KindString.
func KindOf(tag string) Kind {
	if k, ok := tagKinds[tag]; ok {
		return k
	}
	return KindString
}

// Field is one tag-length-value unit. Tag is exactly 2 ASCII characters;
// Value holds the raw little-endian bytes.
type Field struct {
	Tag   string
	Value []byte
}

func validTag(tag string) bool {
	if len(tag) != 2 {
		return false
	}
	return tag[0] < 0x80 && tag[1] < 0x80
}

// NewFieldUint8 creates a uint8 TLV field.
func NewFieldUint8(tag string, v uint8) Field {
	return Field{Tag: tag, Value: []byte{v}}
}

// NewFieldUint16 creates a uint16 TLV field.
func NewFieldUint16(tag string, v uint16) Field {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return Field{Tag: tag, Value: buf}
}

// NewFieldUint32 creates a uint32 TLV field.
func NewFieldUint32(tag string, v uint32) Field {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return Field{Tag: tag, Value: buf}
}

// NewFieldUint64 creates a uint64 TLV field.
func NewFieldUint64(tag string, v uint64) Field {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return Field{Tag: tag, Value: buf}
}

// NewFieldUint creates an integer field using the smallest width that
// holds v. Schema code that needs a fixed width uses the explicit
// constructors instead.
func NewFieldUint(tag string, v uint64) Field {
	switch {
	case v <= math.MaxUint8:
		return NewFieldUint8(tag, uint8(v))
	case v <= math.MaxUint16:
		return NewFieldUint16(tag, uint16(v))
	case v <= math.MaxUint32:
		return NewFieldUint32(tag, uint32(v))
	default:
		return NewFieldUint64(tag, v)
	}
}

// NewFieldFloat32 creates an IEEE-754 float32 TLV field.
func NewFieldFloat32(tag string, v float32) Field {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return Field{Tag: tag, Value: buf}
}

// NewFieldString creates a UTF-8 string TLV field.
func NewFieldString(tag string, v string) Field {
	return Field{Tag: tag, Value: []byte(v)}
}

// NewFieldNested creates a field whose value is the concatenation of the
// encoded children. The length is the total byte length, not a count.
func NewFieldNested(tag string, children []Field) Field {
	value, _ := EncodeFields(children)
	return Field{Tag: tag, Value: value}
}

// Encode serializes one field as tag + little-endian length + value.
func (f Field) Encode() ([]byte, error) {
	if !validTag(f.Tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, f.Tag)
	}
	if len(f.Value) > math.MaxUint16 {
		return nil, ErrInvalidLength
	}
	buf := make([]byte, tlvHeaderLen+len(f.Value))
	copy(buf[0:2], f.Tag)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(f.Value)))
	copy(buf[4:], f.Value)
	return buf, nil
}

// EncodeFields serializes fields in order into one payload.
func EncodeFields(fields []Field) ([]byte, error) {
	out := make([]byte, 0, 32)
	for _, f := range fields {
		b, err := f.Encode()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// DecodeFields parses a payload into its ordered TLV fields. Tags may
// repeat; repeated IT items under AL or LG form a list.
func DecodeFields(payload []byte) ([]Field, error) {
	fields := make([]Field, 0, 4)
	for offset := 0; offset < len(payload); {
		if len(payload)-offset < tlvHeaderLen {
			return nil, ErrTLVTruncated
		}
		tag := string(payload[offset : offset+2])
		length := int(binary.LittleEndian.Uint16(payload[offset+2 : offset+4]))
		offset += tlvHeaderLen
		if length > len(payload)-offset {
			return nil, ErrTLVTruncated
		}
		value := make([]byte, length)
		copy(value, payload[offset:offset+length])
		offset += length
		fields = append(fields, Field{Tag: tag, Value: value})
	}
	return fields, nil
}

// GetField returns the first field with the given tag.
func GetField(fields []Field, tag string) (Field, bool) {
	for _, f := range fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

// CollectFields returns every field with the given tag, in order.
func CollectFields(fields []Field, tag string) []Field {
	var out []Field
	for _, f := range fields {
		if f.Tag == tag {
			out = append(out, f)
		}
	}
	return out
}

// uintValue widens a 1/2/4/8 byte little-endian value. Senders use the
// smallest width that holds the value, so scalar reads are width-lenient.
func uintValue(b []byte) (uint64, error) {
	switch len(b) {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	default:
		return 0, ErrInvalidLength
	}
}

// Uint8 returns the field value as uint8.
func (f Field) Uint8() (uint8, error) {
	v, err := uintValue(f.Value)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint8 {
		return 0, ErrInvalidLength
	}
	return uint8(v), nil
}

// Uint16 returns the field value as uint16.
func (f Field) Uint16() (uint16, error) {
	v, err := uintValue(f.Value)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint16 {
		return 0, ErrInvalidLength
	}
	return uint16(v), nil
}

// Uint64 returns the field value as uint64.
func (f Field) Uint64() (uint64, error) {
	return uintValue(f.Value)
}

// Float32 returns the field value as float32.
func (f Field) Float32() (float32, error) {
	if len(f.Value) != 4 {
		return 0, ErrInvalidLength
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(f.Value)), nil
}

// Text returns the field value as a UTF-8 string.
func (f Field) Text() string {
	return string(f.Value)
}

// Nested parses the field value as a fresh TLV sequence.
func (f Field) Nested() ([]Field, error) {
	return DecodeFields(f.Value)
}

// Value is one decoded TLV value as a closed tagged union.
type Value struct {
	Kind   Kind
	U8     uint8
	U16    uint16
	U32    uint32
	U64    uint64
	F32    float32
	Str    string
	Nested []Field
}

// Decode interprets the field per the tag table and returns the concrete
// variant.
func (f Field) Decode() (Value, error) {
	v := Value{Kind: KindOf(f.Tag)}
	switch v.Kind {
	case KindU8:
		u, err := f.Uint8()
		if err != nil {
			return Value{}, err
		}
		v.U8 = u
	case KindU16:
		u, err := f.Uint16()
		if err != nil {
			return Value{}, err
		}
		v.U16 = u
	case KindU32, KindU64:
		u, err := f.Uint64()
		if err != nil {
			return Value{}, err
		}
		v.U32 = uint32(u)
		v.U64 = u
	case KindF32:
		x, err := f.Float32()
		if err != nil {
			return Value{}, err
		}
		v.F32 = x
	case KindNested:
		nested, err := f.Nested()
		if err != nil {
			return Value{}, err
		}
		v.Nested = nested
	default:
		v.Str = f.Text()
	}
	return v, nil
}
