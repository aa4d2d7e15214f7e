package script

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// scriptLexer splits access scripts into tokens. Newlines are plain
// whitespace: every statement starts with a keyword.
var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	{Name: "Keyword", Pattern: `\b(read|write|auth|dcc|sleep|id)\b`},

	// Durations before numbers so "10ms" is one token.
	{Name: "Duration", Pattern: `[0-9]+(ns|us|ms|s|m|h)`},
	{Name: "Number", Pattern: `0[xX][0-9a-fA-F_]+|[0-9][0-9_]*`},

	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Plus", Pattern: `\+`},
})

// File is a parsed script.
type File struct {
	Statements []*Statement `@@*`
}

// Statement is one command with its arguments. Arity is checked after
// parsing so errors can name the command.
type Statement struct {
	Pos lexer.Position

	Command string `@Keyword`
	Args    []*Arg `@@*`
}

// Arg is a sum of terms, e.g. "debug+0x314".
type Arg struct {
	Pos lexer.Position

	Terms []*Term `@@ ( Plus @@ )*`
}

// Term is a literal or a symbol.
type Term struct {
	Duration *string `  @Duration`
	Number   *string `| @Number`
	Symbol   *string `| @Ident`
}
