package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

var ErrInvalidUTF8 = errors.New("json: string is not valid UTF-8")

// Field is one key/value pair of an ordered JSON object
type Field struct {
	Key   string
	Value any
}

// EncodeObject writes fields as a JSON object in the given order, escaping
// strings the way PHP json_encode does by default: "/" becomes "\/" and
// everything outside ASCII becomes \uXXXX. Checksums are computed over this
// text, so the output must stay byte-identical across nodes.
//
// Supported values: string, bool, int, int64, SignAlgo.
func EncodeObject(fields []Field) ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = append(buf, '{')

	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}

		var err error
		buf, err = appendString(buf, f.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ':')

		switch v := f.Value.(type) {
		case string:
			buf, err = appendString(buf, v)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Key, err)
			}
		case bool:
			buf = strconv.AppendBool(buf, v)
		case int:
			buf = strconv.AppendInt(buf, int64(v), 10)
		case int64:
			buf = strconv.AppendInt(buf, v, 10)
		case SignAlgo:
			buf = strconv.AppendInt(buf, int64(v), 10)
		default:
			return nil, fmt.Errorf("json: unsupported value type %T for field %s", f.Value, f.Key)
		}
	}

	buf = append(buf, '}')
	return buf, nil
}

const hexDigits = "0123456789abcdef"

func appendString(buf []byte, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, ErrInvalidUTF8
	}

	buf = append(buf, '"')
	for _, r := range s {
		switch {
		case r == '"':
			buf = append(buf, '\\', '"')
		case r == '\\':
			buf = append(buf, '\\', '\\')
		case r == '/':
			buf = append(buf, '\\', '/')
		case r == '\b':
			buf = append(buf, '\\', 'b')
		case r == '\f':
			buf = append(buf, '\\', 'f')
		case r == '\n':
			buf = append(buf, '\\', 'n')
		case r == '\r':
			buf = append(buf, '\\', 'r')
		case r == '\t':
			buf = append(buf, '\\', 't')
		case r < 0x20 || r >= utf8.RuneSelf:
			if r > 0xffff {
				r1, r2 := utf16.EncodeRune(r)
				buf = appendUnicodeEscape(buf, r1)
				buf = appendUnicodeEscape(buf, r2)
			} else {
				buf = appendUnicodeEscape(buf, r)
			}
		default:
			buf = append(buf, byte(r))
		}
	}
	buf = append(buf, '"')

	return buf, nil
}

func appendUnicodeEscape(buf []byte, r rune) []byte {
	return append(buf, '\\', 'u',
		hexDigits[(r>>12)&0xf],
		hexDigits[(r>>8)&0xf],
		hexDigits[(r>>4)&0xf],
		hexDigits[r&0xf],
	)
}
