package source

import (
	"testing"
)

func TestSpanCover(t *testing.T) {
	a := Span{File: 0, Start: 4, End: 8}
	b := Span{File: 0, Start: 2, End: 6}
	got := a.Cover(b)
	if got.Start != 2 || got.End != 8 {
		t.Fatalf("Cover = %v, want 0:2-8", got)
	}

	other := Span{File: 1, Start: 0, End: 100}
	if got := a.Cover(other); got != a {
		t.Fatalf("Cover across files must be a no-op, got %v", got)
	}
}

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte("fn main() -> Int {\n    return 42;\n}\n"))

	cases := []struct {
		off  uint32
		line uint32
		col  uint32
	}{
		{0, 1, 1},   // 'f'
		{3, 1, 4},   // 'm'
		{19, 2, 1},  // first indent space
		{23, 2, 5},  // 'r' of return
		{34, 3, 1},  // '}'
	}
	for _, tc := range cases {
		start, _ := fs.Resolve(Span{File: id, Start: tc.off, End: tc.off})
		if start.Line != tc.line || start.Col != tc.col {
			t.Errorf("offset %d: got %d:%d, want %d:%d", tc.off, start.Line, start.Col, tc.line, tc.col)
		}
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.kooix", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	if got := f.GetLine(1); got != "first" {
		t.Errorf("line 1 = %q", got)
	}
	if got := f.GetLine(2); got != "second" {
		t.Errorf("line 2 = %q", got)
	}
	if got := f.GetLine(3); got != "third" {
		t.Errorf("line 3 = %q", got)
	}
	if got := f.GetLine(4); got != "" {
		t.Errorf("line 4 = %q, want empty", got)
	}
}

func TestNormalizeCRLFAndBOM(t *testing.T) {
	fs := NewFileSet()

	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a\r\nb\r\n")...)
	content, hadBOM := removeBOM(content)
	if !hadBOM {
		t.Fatal("BOM not detected")
	}
	content, hadCRLF := normalizeCRLF(content)
	if !hadCRLF {
		t.Fatal("CRLF not detected")
	}
	id := fs.Add("crlf.kooix", content, FileHadBOM|FileNormalizedCRLF)
	if got := string(fs.Get(id).Content); got != "a\nb\n" {
		t.Fatalf("normalized content = %q", got)
	}
}
