package writer

import (
	"fmt"
	"io"

	"github.com/tsawler/folio/core"
)

// writeObject renders a single object in wire syntax, translating indirect
// reference numbers through remap. Returns the number of bytes written.
func writeObject(w io.Writer, obj core.Object, remap func(int) int) (int64, error) {
	cw := &countingWriter{w: w}
	err := serialize(cw, obj, remap)
	return cw.n, err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

func serialize(w io.Writer, obj core.Object, remap func(int) int) error {
	switch v := obj.(type) {
	case nil, core.Null:
		_, err := io.WriteString(w, "null")
		return err

	case core.Bool, core.Int, core.Real:
		_, err := io.WriteString(w, v.String())
		return err

	case core.String:
		return serializeString(w, string(v))

	case core.Name:
		return serializeName(w, string(v))

	case core.IndirectRef:
		_, err := fmt.Fprintf(w, "%d 0 R", remap(v.Number))
		return err

	case core.Array:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, elem := range v {
			if i > 0 {
				if _, err := io.WriteString(w, " "); err != nil {
					return err
				}
			}
			if err := serialize(w, elem, remap); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err

	case core.Dict:
		return serializeDict(w, v, remap)

	case *core.Stream:
		// The written /Length must describe the bytes actually emitted
		dict := make(core.Dict, len(v.Dict)+1)
		for k, val := range v.Dict {
			dict[k] = val
		}
		dict["Length"] = core.Int(len(v.Data))

		if err := serializeDict(w, dict, remap); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\nstream\n"); err != nil {
			return err
		}
		if _, err := w.Write(v.Data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\nendstream")
		return err

	default:
		return fmt.Errorf("unsupported object type %T", obj)
	}
}

func serializeDict(w io.Writer, dict core.Dict, remap func(int) int) error {
	if _, err := io.WriteString(w, "<<"); err != nil {
		return err
	}
	for _, key := range dict.SortedKeys() {
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := serializeName(w, key); err != nil {
			return err
		}
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := serialize(w, dict[key], remap); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, " >>")
	return err
}

// serializeString writes a PDF string, choosing hex form when the content is
// mostly binary and escaped literal form otherwise.
func serializeString(w io.Writer, s string) error {
	binary := 0
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			binary++
		}
	}

	if len(s) > 0 && binary*2 > len(s) {
		if _, err := io.WriteString(w, "<"); err != nil {
			return err
		}
		for i := 0; i < len(s); i++ {
			if _, err := fmt.Fprintf(w, "%02X", s[i]); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, ">")
		return err
	}

	if _, err := io.WriteString(w, "("); err != nil {
		return err
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		var err error
		switch c {
		case '(', ')', '\\':
			_, err = fmt.Fprintf(w, "\\%c", c)
		case '\n':
			_, err = io.WriteString(w, "\\n")
		case '\r':
			_, err = io.WriteString(w, "\\r")
		case '\t':
			_, err = io.WriteString(w, "\\t")
		default:
			if c < 0x20 || c > 0x7e {
				_, err = fmt.Fprintf(w, "\\%03o", c)
			} else {
				_, err = w.Write([]byte{c})
			}
		}
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ")")
	return err
}

// serializeName writes a name, escaping delimiter and whitespace bytes with
// the #xx form.
func serializeName(w io.Writer, name string) error {
	if _, err := io.WriteString(w, "/"); err != nil {
		return err
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isRegularNameByte(c) {
			if _, err := w.Write([]byte{c}); err != nil {
				return err
			}
		} else {
			if _, err := fmt.Fprintf(w, "#%02X", c); err != nil {
				return err
			}
		}
	}
	return nil
}

func isRegularNameByte(c byte) bool {
	if c <= 0x20 || c > 0x7e || c == '#' {
		return false
	}
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return false
	}
	return true
}
