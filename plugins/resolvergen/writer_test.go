package resolvergen

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{
			name: "ネストしたブロック",
			write: func(w *Writer) {
				w.WriteBlock("export const a = {", "};", func() {
					w.WriteBlock("b: {", "},", func() {
						w.WriteLinef("c: %d,", 1)
					})
				})
			},
			want: "export const a = {\n  b: {\n    c: 1,\n  },\n};\n",
		},
		{
			name: "空行にはインデントを付けない",
			write: func(w *Writer) {
				w.WriteBlock("{", "}", func() {
					w.WriteLine("a")
					w.WriteLine("")
					w.WriteLine("b")
				})
			},
			want: "{\n  a\n\n  b\n}\n",
		},
		{
			name: "ブロックを抜けると元の深さに戻る",
			write: func(w *Writer) {
				w.WriteBlock("a {", "}", func() {})
				w.WriteLine("b")
			},
			want: "a {\n}\nb\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := NewWriter("  ")
			tt.write(w)
			if diff := cmp.Diff(tt.want, w.String()); diff != "" {
				t.Errorf("diff(-want +got): %s", diff)
			}
		})
	}
}
