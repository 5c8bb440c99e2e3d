package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// Encoding names accepted in Options.
const (
	EncodingAuto   = ""
	EncodingUTF8   = "utf-8"
	EncodingCP1251 = "windows-1251"
)

// Options controls delimited text parsing.
type Options struct {
	// Delimiter is the field separator. Zero sniffs it from the header line.
	Delimiter rune
	// Encoding of the input. Auto treats valid UTF-8 as UTF-8 and decodes
	// anything else as Windows-1251, the default for Russian Excel exports.
	Encoding string
}

// ReadDelimited parses delimited text such as ";"-separated CSV exports.
func ReadDelimited(r io.Reader, opts Options) (*Table, error) {
	data, err := readLimited(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	data = bytes.TrimPrefix(data, byteOrderMark)
	data, err = decode(data, opts.Encoding)
	if err != nil {
		return nil, err
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(data)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		// A quoted cell may span lines, so ask the reader where the
		// record started.
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return fromRecords(records, lines)
}

func decode(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingUTF8:
		return sanitizeUTF8(data), nil
	case EncodingCP1251:
		return decodeCP1251(data)
	case EncodingAuto:
		if utf8.Valid(data) {
			return data, nil
		}
		return decodeCP1251(data)
	default:
		return nil, fmt.Errorf("encoding error: unknown encoding %q", encoding)
	}
}

func decodeCP1251(data []byte) ([]byte, error) {
	out, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	return out, nil
}

// sniffDelimiter picks the most frequent candidate separator on the first
// line, preferring ";" on ties since that is what the salon exports use.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ';', bytes.Count(line, []byte{';'})
	for _, c := range []rune{',', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
