package resolvergen

import (
	"fmt"
	"strings"
)

// Writer は TypeScript のソースを1行ずつ組み立てる。
// WriteBlock の中で書いた行は1段深くインデントされる。
type Writer struct {
	sb     strings.Builder
	indent string
	depth  int
}

func NewWriter(indent string) *Writer {
	return &Writer{indent: indent}
}

// WriteLine は現在の深さで line を書き込む。空行にはインデントを付けない。
func (w *Writer) WriteLine(line string) {
	if line != "" {
		w.sb.WriteString(strings.Repeat(w.indent, w.depth))
	}
	w.sb.WriteString(line)
	w.sb.WriteByte('\n')
}

func (w *Writer) WriteLinef(format string, args ...any) {
	w.WriteLine(fmt.Sprintf(format, args...))
}

// WriteBlock は opener と closer の行で body が書く行を囲む。
func (w *Writer) WriteBlock(opener, closer string, body func()) {
	w.WriteLine(opener)
	w.depth++
	body()
	w.depth--
	w.WriteLine(closer)
}

func (w *Writer) String() string {
	return w.sb.String()
}
