package lexer

import "testing"

func TestNextTokenOperatorsAndDelimiters(t *testing.T) {
	input := `let x = 10 + 20 * 3 / 2 % 7;
x == x != x < x <= x > x >= x && x || !x
(x) {x} [x] , ;`

	want := []struct {
		Type    TokenType
		Literal string
	}{
		{LET, "let"}, {IDENT, "x"}, {ASSIGN, "="}, {INT, "10"}, {PLUS, "+"},
		{INT, "20"}, {ASTERISK, "*"}, {INT, "3"}, {SLASH, "/"}, {INT, "2"},
		{PERCENT, "%"}, {INT, "7"}, {SEMICOLON, ";"},
		{IDENT, "x"}, {EQ, "=="}, {IDENT, "x"}, {NOT_EQ, "!="}, {IDENT, "x"},
		{LT, "<"}, {IDENT, "x"}, {LE, "<="}, {IDENT, "x"}, {GT, ">"}, {IDENT, "x"},
		{GE, ">="}, {IDENT, "x"}, {LOGICAL_AND, "&&"}, {IDENT, "x"}, {LOGICAL_OR, "||"},
		{BANG, "!"}, {IDENT, "x"},
		{LPAREN, "("}, {IDENT, "x"}, {RPAREN, ")"},
		{LBRACE, "{"}, {IDENT, "x"}, {RBRACE, "}"},
		{LBRACKET, "["}, {IDENT, "x"}, {RBRACKET, "]"},
		{COMMA, ","}, {SEMICOLON, ";"},
		{EOF, ""},
	}

	l := New(input)
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.Type || tok.Literal != w.Literal {
			t.Fatalf("token %d: got (%s, %q), want (%s, %q)", i, tok.Type, tok.Literal, w.Type, w.Literal)
		}
	}
}

func TestNextTokenKeywordsAndLiterals(t *testing.T) {
	input := `function let const true false null if else while for break continue return print
foo_bar 42 3.14 "hello\nworld"`

	want := []struct {
		Type    TokenType
		Literal string
	}{
		{FUNCTION, "function"}, {LET, "let"}, {CONST, "const"}, {TRUE, "true"},
		{FALSE, "false"}, {NULLTOK, "null"}, {IF, "if"}, {ELSE, "else"},
		{WHILE, "while"}, {FOR, "for"}, {BREAK, "break"}, {CONTINUE, "continue"},
		{RETURN, "return"}, {PRINT, "print"},
		{IDENT, "foo_bar"}, {INT, "42"}, {FLOAT, "3.14"},
		{STRING, "hello\nworld"},
		{EOF, ""},
	}

	l := New(input)
	for i, w := range want {
		tok := l.NextToken()
		if tok.Type != w.Type || tok.Literal != w.Literal {
			t.Fatalf("token %d: got (%s, %q), want (%s, %q)", i, tok.Type, tok.Literal, w.Type, w.Literal)
		}
	}
}

func TestLineTracking(t *testing.T) {
	input := "let x = 1\nlet y = 2\n\nlet z = 3"
	l := New(input)

	var lines []int
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
		if tok.Type == LET {
			lines = append(lines, tok.Line)
		}
	}
	want := []int{1, 2, 4}
	if len(lines) != len(want) {
		t.Fatalf("got %d let-tokens, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("let[%d] line = %d, want %d", i, lines[i], w)
		}
	}
}

func TestCommentsSkipped(t *testing.T) {
	input := `1 // line comment
+ /* block
comment */ 2`
	l := New(input)
	tok := l.NextToken()
	if tok.Type != INT || tok.Literal != "1" {
		t.Fatalf("got %v, want INT 1", tok)
	}
	tok = l.NextToken()
	if tok.Type != PLUS {
		t.Fatalf("got %v, want PLUS", tok)
	}
	tok = l.NextToken()
	if tok.Type != INT || tok.Literal != "2" {
		t.Fatalf("got %v, want INT 2", tok)
	}
}

func TestIllegalCharacterRecordsError(t *testing.T) {
	l := New("let x = @")
	for {
		tok := l.NextToken()
		if tok.Type == EOF {
			break
		}
	}
	if len(l.Errors) != 1 {
		t.Fatalf("got %d lexer errors, want 1", len(l.Errors))
	}
}

func TestUnterminatedStringRecordsError(t *testing.T) {
	l := New(`"unterminated`)
	l.NextToken()
	if len(l.Errors) != 1 {
		t.Fatalf("got %d lexer errors, want 1", len(l.Errors))
	}
}
