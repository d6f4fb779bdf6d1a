// Package charclass compiles PEG character class specifications such as
// "a-z_", "^\n" or "\00-\1f" into a 256-bit byte set.
package charclass

import (
	"fmt"
	"math/bits"
	"strings"
)

// Set is a compiled class: one bit per byte value.
type Set struct {
	words [8]uint32
}

// Compile decodes spec left to right. A leading '^' starts from the full
// byte universe and makes every later item clear bits instead of setting
// them. "X-Y" selects X through Y inclusive and nothing when Y < X; a '-'
// with nothing usable on either side is literal.
func Compile(spec string) *Set {
	s := &Set{}
	set := s.add
	if strings.HasPrefix(spec, "^") {
		s.fill()
		set = s.remove
		spec = spec[1:]
	}

	for i := 0; i < len(spec); {
		c, n := next(spec[i:])
		i += n
		if c >= 0 && i+1 < len(spec) && spec[i] == '-' {
			hi, m := next(spec[i+1:])
			i += 1 + m
			for ; c <= hi; c++ {
				set(c)
			}
			continue
		}
		if c >= 0 {
			set(c)
		}
	}
	return s
}

// next decodes one possibly escaped character at the start of s and
// reports how many bytes it used. It returns -1 for a \u escape naming a
// code point outside the byte range.
func next(s string) (int, int) {
	c := int(s[0])
	if c != '\\' || len(s) == 1 {
		return c, 1
	}
	switch e := s[1]; e {
	case 'a':
		return '\a', 2
	case 'b':
		return '\b', 2
	case 'e':
		return 0x1b, 2
	case 'f':
		return '\f', 2
	case 'n':
		return '\n', 2
	case 'r':
		return '\r', 2
	case 't':
		return '\t', 2
	case 'v':
		return '\v', 2
	case 'u':
		v, n := hexRun(s[2:], 4)
		if n == 0 {
			return 'u', 2
		}
		if v > 0xff {
			return -1, 2 + n
		}
		return v, 2 + n
	default:
		v, n := hexRun(s[1:], 2)
		if n == 0 {
			return int(e), 2
		}
		return v, 1 + n
	}
}

func hexRun(s string, max int) (v, n int) {
	for n < max && n < len(s) {
		d, ok := hexDigit(s[n])
		if !ok {
			break
		}
		v = v*16 + d
		n++
	}
	return v, n
}

func hexDigit(c byte) (int, bool) {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0'), true
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10, true
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func (s *Set) add(c int)    { s.words[c>>5] |= 1 << (c & 31) }
func (s *Set) remove(c int) { s.words[c>>5] &^= 1 << (c & 31) }

func (s *Set) fill() {
	for i := range s.words {
		s.words[i] = ^uint32(0)
	}
}

// Has reports whether b is selected.
func (s *Set) Has(b byte) bool {
	return s.words[b>>5]&(1<<(b&31)) != 0
}

// Len returns the number of selected bytes.
func (s *Set) Len() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount32(w)
	}
	return n
}

// Words returns the set as eight 32-bit words; byte b is bit b%32 of word b/32.
func (s *Set) Words() [8]uint32 { return s.words }

// Escaped renders the selected bytes in ascending order as a class
// specification that compiles back to the same set. Runs of three or more
// bytes are written as ranges.
func (s *Set) Escaped() string {
	var b strings.Builder
	for c := 0; c < 256; {
		if !s.Has(byte(c)) {
			c++
			continue
		}
		end := c
		for end+1 < 256 && s.Has(byte(end+1)) {
			end++
		}
		switch {
		case end-c >= 2:
			b.WriteString(escape(byte(c)))
			b.WriteByte('-')
			b.WriteString(escape(byte(end)))
		default:
			for i := c; i <= end; i++ {
				b.WriteString(escape(byte(i)))
			}
		}
		c = end + 1
	}
	return b.String()
}

func escape(c byte) string {
	switch c {
	case '\a':
		return `\a`
	case '\b':
		return `\b`
	case 0x1b:
		return `\e`
	case '\f':
		return `\f`
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\v':
		return `\v`
	case '\\', '-', '^', '"', '\'', ']', '[':
		return `\` + string(c)
	}
	if c < 0x20 || c >= 0x7f {
		return fmt.Sprintf(`\%02X`, c)
	}
	return string(c)
}

func (s *Set) String() string {
	return "[" + s.Escaped() + "]"
}

// Equal reports whether both sets select the same bytes.
func (s *Set) Equal(o *Set) bool {
	return s.words == o.words
}
