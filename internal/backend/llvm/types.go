package llvm

import (
	"strings"

	"kooix/internal/ast"
)

// llvmType maps a Kooix type to its LLVM spelling. Int is i64, Bool
// computes as i1, Text is a NUL-terminated i8*, Unit is void, and every
// heap value (record, enum, generic) is an opaque i8*.
func llvmType(ty ast.TypeRef) string {
	switch ty.Head() {
	case "Unit":
		return "void"
	case "Int":
		return "i64"
	case "Bool":
		return "i1"
	case "Text", "String":
		return "i8*"
	default:
		return "i8*"
	}
}

// sanitizeSymbol maps a Kooix function name to its emitted symbol. The
// program entry point is renamed so the C runtime can own the real main.
func sanitizeSymbol(name string) string {
	if name == "main" {
		return "kx_program_main"
	}
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func sanitizeLabel(label string) string {
	return sanitizeSymbol(label)
}

// escapeIRString renders a string literal body for an LLVM c"..."
// constant, appending the NUL terminator.
func escapeIRString(value string) (string, int) {
	var sb strings.Builder
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b >= 0x20 && b < 0x7f && b != '"' && b != '\\' {
			sb.WriteByte(b)
		} else {
			const hex = "0123456789ABCDEF"
			sb.WriteByte('\\')
			sb.WriteByte(hex[b>>4])
			sb.WriteByte(hex[b&0xf])
		}
	}
	sb.WriteString("\\00")
	return sb.String(), len(value) + 1
}
