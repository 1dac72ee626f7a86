package literal

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/deepnoodle-ai/bcgen/errz"
)

// StringLookup maps a string table index back to its content.
type StringLookup func(id uint32) string

// Decode reads count values from buf starting at offset. Runs may extend
// past the requested count; decoding stops once count values are read.
func Decode(buf []byte, offset uint32, count int, lookup StringLookup) ([]Value, error) {
	pos := int(offset)
	out := make([]Value, 0, count)
	need := func(n int) error {
		if pos+n > len(buf) {
			return errz.Newf(errz.ErrEncoding, errz.ErrMalformedLiteral,
				"literal buffer truncated at offset %d", pos)
		}
		return nil
	}
	for len(out) < count {
		if err := need(1); err != nil {
			return nil, err
		}
		header := buf[pos]
		pos++
		tag := header & tagMask
		n := int(header & 0x0f)
		if header&longHeader != 0 {
			if err := need(1); err != nil {
				return nil, err
			}
			n = n<<8 | int(buf[pos])
			pos++
		}
		if n == 0 {
			if tag != TagNull || header&longHeader != 0 {
				return nil, errz.Newf(errz.ErrEncoding, errz.ErrMalformedLiteral,
					"empty literal run at offset %d", pos-1)
			}
			if err := need(1); err != nil {
				return nil, err
			}
			n = int(buf[pos])
			pos++
			for i := 0; i < n && len(out) < count; i++ {
				out = append(out, Undefined)
			}
			continue
		}
		for i := 0; i < n && len(out) < count; i++ {
			v, size, err := decodeOne(tag, buf[pos:], lookup)
			if err != nil {
				return nil, errz.Newf(errz.ErrEncoding, errz.ErrMalformedLiteral,
					"literal at offset %d: %v", pos, err)
			}
			out = append(out, v)
			pos += size
		}
	}
	return out, nil
}

func decodeOne(tag byte, b []byte, lookup StringLookup) (Value, int, error) {
	width := 0
	switch tag {
	case TagNumber:
		width = 8
	case TagLongString, TagInteger:
		width = 4
	case TagShortString:
		width = 2
	case TagByteString:
		width = 1
	}
	if len(b) < width {
		return Value{}, 0, fmt.Errorf("truncated payload")
	}
	switch tag {
	case TagNull:
		return Null, 0, nil
	case TagTrue:
		return Bool(true), 0, nil
	case TagFalse:
		return Bool(false), 0, nil
	case TagNumber:
		return Number(math.Float64frombits(binary.LittleEndian.Uint64(b))), width, nil
	case TagInteger:
		return Number(float64(int32(binary.LittleEndian.Uint32(b)))), width, nil
	case TagLongString:
		return String(lookup(binary.LittleEndian.Uint32(b))), width, nil
	case TagShortString:
		return String(lookup(uint32(binary.LittleEndian.Uint16(b)))), width, nil
	case TagByteString:
		return String(lookup(uint32(b[0]))), width, nil
	default:
		return Value{}, 0, fmt.Errorf("unknown tag %#x", tag)
	}
}
