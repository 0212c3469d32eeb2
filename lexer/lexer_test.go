package lexer

import (
	"testing"

	"github.com/gogpu/pngine/ast"
)

func tagsOf(tokens []ast.Token) []ast.TokenTag {
	tags := make([]ast.TokenTag, len(tokens))
	for i, t := range tokens {
		tags[i] = t.Tag
	}
	return tags
}

func TestLexMacroAndProperty(t *testing.T) {
	src := []byte(`#buffer b { size=64 usage=[uniform copy_dst] }`)
	tokens, ends, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if len(tokens) != len(ends) {
		t.Fatalf("tokens/ends length mismatch: %d vs %d", len(tokens), len(ends))
	}
	want := []ast.TokenTag{
		ast.TokenMacroBuffer, ast.TokenIdentifier, ast.TokenLBrace,
		ast.TokenIdentifier, ast.TokenEquals, ast.TokenNumber,
		ast.TokenIdentifier, ast.TokenEquals, ast.TokenLBracket,
		ast.TokenIdentifier, ast.TokenIdentifier, ast.TokenRBracket,
		ast.TokenRBrace, ast.TokenEOF,
	}
	got := tagsOf(tokens)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexHexAndConstants(t *testing.T) {
	src := []byte(`#buffer b { size=(1+PI)*0x10 usage=[UNIFORM] }`)
	tokens, _, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	found := false
	for _, tok := range tokens {
		if tok.Tag == ast.TokenNumber {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a number token for the hex literal")
	}
}

func TestLexArrayDisambiguation(t *testing.T) {
	// [1 -1 2 -2] must lex as four numbers interleaved with minus signs;
	// the lexer does not disambiguate (that's the parser's job), but it
	// must still tokenize each '-' distinctly rather than merge it into
	// the adjacent number.
	src := []byte(`[1 -1 2 -2]`)
	tokens, _, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []ast.TokenTag{
		ast.TokenLBracket, ast.TokenNumber, ast.TokenMinus, ast.TokenNumber,
		ast.TokenNumber, ast.TokenMinus, ast.TokenNumber, ast.TokenRBracket,
		ast.TokenEOF,
	}
	got := tagsOf(tokens)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLexUnterminatedString(t *testing.T) {
	_, _, err := Lex([]byte(`#wgsl s { value="unterminated`))
	if err == nil {
		t.Fatal("expected lex_error for unterminated string")
	}
	var lexErr *Error
	if !asLexError(err, &lexErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
}

func TestLexStringWithDollarInterpolation(t *testing.T) {
	tokens, ends, err := Lex([]byte(`"hello $name and ${1+2}"`))
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if tokens[0].Tag != ast.TokenString {
		t.Fatalf("tag = %s, want string", tokens[0].Tag)
	}
	text := string([]byte(`"hello $name and ${1+2}"`)[tokens[0].Start:ends[0]])
	if text != `"hello $name and ${1+2}"` {
		t.Errorf("text = %q", text)
	}
}

func TestLexLineComment(t *testing.T) {
	tokens, _, err := Lex([]byte("// a comment\n#frame main {}"))
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if tokens[0].Tag != ast.TokenComment {
		t.Fatalf("tag = %s, want comment", tokens[0].Tag)
	}
	if tokens[1].Tag != ast.TokenMacroFrame {
		t.Fatalf("tag = %s, want #frame", tokens[1].Tag)
	}
}

func asLexError(err error, out **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*out = e
	}
	return ok
}
