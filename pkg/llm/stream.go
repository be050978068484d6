package llm

import (
	"unicode/utf8"
)

// Accumulator turns a stream of byte chunks or text deltas into cumulative
// text callbacks. A multi-byte rune split across chunks is held back until
// it is complete.
type Accumulator struct {
	buf       []byte
	emitted   int
	onPartial PartialFunc
}

func NewAccumulator(onPartial PartialFunc) *Accumulator {
	return &Accumulator{onPartial: onPartial}
}

func (a *Accumulator) Write(p []byte) (int, error) {
	a.buf = append(a.buf, p...)
	a.flush()
	return len(p), nil
}

func (a *Accumulator) WriteString(s string) {
	a.buf = append(a.buf, s...)
	a.flush()
}

func (a *Accumulator) flush() {
	valid := completeLength(a.buf)
	if valid == a.emitted {
		return
	}
	a.emitted = valid
	if a.onPartial != nil {
		a.onPartial(string(a.buf[:valid]))
	}
}

// String returns everything received, including a dangling partial rune.
func (a *Accumulator) String() string {
	return string(a.buf)
}

// completeLength trims an incomplete rune from the end of b.
func completeLength(b []byte) int {
	n := len(b)
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return i
			}
			break
		}
	}
	return n
}
