package literal

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Tags occupy bits 4-6 of a sequence header.
const (
	TagNull        byte = 0x00
	TagTrue        byte = 0x10
	TagFalse       byte = 0x20
	TagNumber      byte = 0x30
	TagLongString  byte = 0x40
	TagShortString byte = 0x50
	TagByteString  byte = 0x60
	TagInteger     byte = 0x70

	tagMask      byte = 0x70
	longHeader   byte = 0x80
	maxShortRun       = 0x0f
	maxRun            = 0x0fff
	maxUndefined      = 0xff
)

// tagUndefined marks undefined runs internally. On the wire they are written
// as a null header with a zero count followed by the run length.
const tagUndefined byte = 0xff

// StringResolver maps literal strings to string table indices.
type StringResolver interface {
	AddString(s string, isIdentifier bool) uint32
}

// Serializer encodes literal sequences into three shared buffers: one for
// array elements, one for object keys and one for object values.
//
// When dedup is enabled, a newly serialized sequence that already occurs
// anywhere in the target buffer as a byte substring is not appended; the
// offset of the existing occurrence is returned instead. The match is on raw
// bytes, so it may alias an unrelated sequence whose encoding happens to
// contain the same bytes. The runtime decoder reads by offset and count, so
// such aliases decode correctly.
type Serializer struct {
	strings StringResolver
	dedup   bool
	array   []byte
	keys    []byte
	values  []byte
}

// NewSerializer returns a Serializer that resolves strings through strings.
func NewSerializer(strings StringResolver, dedup bool) *Serializer {
	return &Serializer{strings: strings, dedup: dedup}
}

// AddArrayBuffer serializes elems into the array buffer and returns its
// offset.
func (s *Serializer) AddArrayBuffer(elems []Value) uint32 {
	return s.append(&s.array, Serialize(elems, s.strings, false))
}

// AddObjectBuffer serializes keys into the object key buffer and vals into
// the object value buffer, returning both offsets. Key strings are
// registered as identifiers.
func (s *Serializer) AddObjectBuffer(keys, vals []Value) (keyOffset, valOffset uint32) {
	keyOffset = s.append(&s.keys, Serialize(keys, s.strings, true))
	valOffset = s.append(&s.values, Serialize(vals, s.strings, false))
	return keyOffset, valOffset
}

func (s *Serializer) append(buf *[]byte, data []byte) uint32 {
	if s.dedup {
		if idx := bytes.Index(*buf, data); idx >= 0 {
			return uint32(idx)
		}
	}
	offset := uint32(len(*buf))
	*buf = append(*buf, data...)
	return offset
}

// ArrayBuffer returns a copy of the array buffer.
func (s *Serializer) ArrayBuffer() []byte {
	return append([]byte(nil), s.array...)
}

// ObjectKeyBuffer returns a copy of the object key buffer.
func (s *Serializer) ObjectKeyBuffer() []byte {
	return append([]byte(nil), s.keys...)
}

// ObjectValueBuffer returns a copy of the object value buffer.
func (s *Serializer) ObjectValueBuffer() []byte {
	return append([]byte(nil), s.values...)
}

// Serialize encodes vals as a sequence of tagged runs. Consecutive values
// with the same tag share one header. Strings are registered with strings;
// they are identifiers when isKeyBuffer is set.
func Serialize(vals []Value, strings StringResolver, isKeyBuffer bool) []byte {
	var (
		out     []byte
		payload []byte
		runTag  byte
		runLen  int
	)
	flush := func() {
		if runLen == 0 {
			return
		}
		if runTag == tagUndefined {
			out = append(out, TagNull, byte(runLen))
		} else {
			out = appendHeader(out, runTag, runLen)
			out = append(out, payload...)
		}
		payload = payload[:0]
		runLen = 0
	}
	for _, v := range vals {
		tag, data := encode(v, strings, isKeyBuffer)
		limit := maxRun
		if tag == tagUndefined {
			limit = maxUndefined
		}
		if tag != runTag || runLen == limit {
			flush()
			runTag = tag
		}
		payload = append(payload, data...)
		runLen++
	}
	flush()
	return out
}

func appendHeader(out []byte, tag byte, n int) []byte {
	if n > maxShortRun {
		return append(out, longHeader|tag|byte(n>>8), byte(n&0xff))
	}
	return append(out, tag|byte(n))
}

func encode(v Value, strings StringResolver, isKeyBuffer bool) (byte, []byte) {
	switch v.kind {
	case KindUndefined:
		return tagUndefined, nil
	case KindBool:
		if v.b {
			return TagTrue, nil
		}
		return TagFalse, nil
	case KindNumber:
		if i, ok := int32Value(v.num); ok {
			return TagInteger, binary.LittleEndian.AppendUint32(nil, uint32(i))
		}
		return TagNumber, binary.LittleEndian.AppendUint64(nil, math.Float64bits(v.num))
	case KindString:
		id := strings.AddString(v.str, isKeyBuffer)
		switch {
		case id <= math.MaxUint8:
			return TagByteString, []byte{byte(id)}
		case id <= math.MaxUint16:
			return TagShortString, binary.LittleEndian.AppendUint16(nil, uint16(id))
		default:
			return TagLongString, binary.LittleEndian.AppendUint32(nil, id)
		}
	default:
		return TagNull, nil
	}
}
