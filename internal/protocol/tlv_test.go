package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestTLVScalarRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		check func(t *testing.T, v Value)
	}{
		{"u8", NewFieldUint8(TagStatus, 0x03), func(t *testing.T, v Value) {
			if v.Kind != KindU8 || v.U8 != 0x03 {
				t.Fatalf("got %+v", v)
			}
		}},
		{"u16", NewFieldUint16(TagMaxCount, 500), func(t *testing.T, v Value) {
			if v.Kind != KindU16 || v.U16 != 500 {
				t.Fatalf("got %+v", v)
			}
		}},
		{"u64", NewFieldUint64(TagTimestamp, 1700000000), func(t *testing.T, v Value) {
			if v.Kind != KindU64 || v.U64 != 1700000000 {
				t.Fatalf("got %+v", v)
			}
		}},
		{"f32", NewFieldFloat32(TagTemperature, 22.5), func(t *testing.T, v Value) {
			if v.Kind != KindF32 || v.F32 != 22.5 {
				t.Fatalf("got %+v", v)
			}
		}},
		{"string", NewFieldString(TagInstruction, "ping"), func(t *testing.T, v Value) {
			if v.Kind != KindString || v.Str != "ping" {
				t.Fatalf("got %+v", v)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := tc.field.Encode()
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			fields, err := DecodeFields(b)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(fields) != 1 || fields[0].Tag != tc.field.Tag {
				t.Fatalf("decoded %+v", fields)
			}
			v, err := fields[0].Decode()
			if err != nil {
				t.Fatalf("value: %v", err)
			}
			tc.check(t, v)
		})
	}
}

func TestTLVNestedRoundTrip(t *testing.T) {
	item := NewFieldNested(TagAlarmItem, []Field{
		NewFieldUint8(TagAlarmID, 1),
		NewFieldFloat32(TagAlarmLow, 15.0),
		NewFieldFloat32(TagAlarmHigh, 35.0),
	})
	list := NewFieldNested(TagAlarmList, []Field{item, item})

	b, err := list.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fields, err := DecodeFields(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	v, err := fields[0].Decode()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v.Kind != KindNested || len(v.Nested) != 2 {
		t.Fatalf("got %+v", v)
	}
	inner, err := v.Nested[0].Nested()
	if err != nil {
		t.Fatalf("inner: %v", err)
	}
	if len(inner) != 3 {
		t.Fatalf("inner fields: %+v", inner)
	}
	low, err := inner[1].Float32()
	if err != nil || low != 15.0 {
		t.Fatalf("low=%v err=%v", low, err)
	}
}

func TestTLVNestedLengthIsByteLength(t *testing.T) {
	list := NewFieldNested(TagAlarmList, []Field{
		NewFieldUint8(TagAlarmID, 0),
		NewFieldUint8(TagAlarmID, 1),
	})
	// Two u8 items encode as 5 bytes each; the list length is 10, not 2.
	if len(list.Value) != 10 {
		t.Fatalf("nested value length = %d", len(list.Value))
	}
}

func TestTLVSmallestWidthEncoding(t *testing.T) {
	cases := []struct {
		v    uint64
		want int
	}{
		{0, 1},
		{0xFF, 1},
		{0x100, 2},
		{0xFFFF, 2},
		{0x10000, 4},
		{0xFFFFFFFF, 4},
		{0x100000000, 8},
	}
	for _, tc := range cases {
		f := NewFieldUint(TagTimestamp, tc.v)
		if len(f.Value) != tc.want {
			t.Fatalf("value %d: width %d want %d", tc.v, len(f.Value), tc.want)
		}
		got, err := f.Uint64()
		if err != nil || got != tc.v {
			t.Fatalf("value %d: got %d err=%v", tc.v, got, err)
		}
	}
}

func TestTLVScalarWidthLenient(t *testing.T) {
	// A u64 tag narrowed to 2 bytes by the smallest-width rule must still
	// decode.
	f := NewFieldUint16(TagTimeStart, 1000)
	v, err := f.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Kind != KindU64 || v.U64 != 1000 {
		t.Fatalf("got %+v", v)
	}
}

func TestTLVUnknownTagDecodesAsString(t *testing.T) {
	f := NewFieldString("ZZ", "mystery")
	v, err := f.Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Kind != KindString || v.Str != "mystery" {
		t.Fatalf("got %+v", v)
	}
}

func TestTLVInvalidTag(t *testing.T) {
	for _, tag := range []string{"", "A", "ABC", "\xff\xfe"} {
		f := Field{Tag: tag, Value: []byte{1}}
		if _, err := f.Encode(); !errors.Is(err, ErrInvalidTag) {
			t.Fatalf("tag %q: expected ErrInvalidTag, got %v", tag, err)
		}
	}
}

func TestTLVTruncated(t *testing.T) {
	b, err := NewFieldString(TagInstruction, "ping").Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, cut := range []int{1, 3, len(b) - 1} {
		if _, err := DecodeFields(b[:cut]); !errors.Is(err, ErrTLVTruncated) {
			t.Fatalf("cut %d: expected ErrTLVTruncated, got %v", cut, err)
		}
	}
}

func TestTLVUnknownTagDoesNotAbortSiblings(t *testing.T) {
	payload, err := EncodeFields([]Field{
		NewFieldString("ZZ", "noise"),
		NewFieldUint8(TagStatus, 0),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fields, err := DecodeFields(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("fields: %+v", fields)
	}
	st, ok := GetField(fields, TagStatus)
	if !ok {
		t.Fatalf("status field missing")
	}
	if v, err := st.Uint8(); err != nil || v != 0 {
		t.Fatalf("status=%d err=%v", v, err)
	}
}

func TestTLVWireLayout(t *testing.T) {
	b, err := NewFieldString(TagInstruction, "ping").Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{'I', 'N', 0x04, 0x00, 'p', 'i', 'n', 'g'}
	if !bytes.Equal(b, want) {
		t.Fatalf("got %x want %x", b, want)
	}
}

func TestCollectFields(t *testing.T) {
	fields := []Field{
		NewFieldUint8(TagAlarmItem, 0),
		NewFieldUint8(TagStatus, 1),
		NewFieldUint8(TagAlarmItem, 2),
	}
	items := CollectFields(fields, TagAlarmItem)
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
}
