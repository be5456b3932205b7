// Package lexer tokenizes source-language text. It is a collaborator
// (§1): the core compiler consumes only the token stream this package
// produces, never its internals.
package lexer

type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	String
	Char

	// Keywords.
	KwImport
	KwModifier
	KwPublic
	KwPrivate
	KwExternal
	KwInternal
	KwStruct
	KwFunc
	KwReturn
	KwIf
	KwElse
	KwWhile
	KwFor
	KwBreak
	KwContinue
	KwTrue
	KwFalse
	KwSizeof
	KwInput
	KwDesc
	KwVariadic
	KwDo

	// Punctuation / operators.
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Semi
	Colon
	Dot
	Arrow // "->"
	At    // "@init" etc — lexed as At + Ident

	Assign
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
	CaretAssign
	AmpAssign
	PipeAssign
	TildeAssign

	Eq
	Neq
	Gt
	Gte
	Lt
	Lte
	AndAnd
	OrOr
	Plus
	Minus
	Star
	Slash
	Caret
	Percent
	Shl
	Shr
	Amp
	Pipe
	Tilde
	Bang
	PlusPlus
	MinusMinus
)

var keywords = map[string]Kind{
	"import":   KwImport,
	"modifier": KwModifier,
	"public":   KwPublic,
	"private":  KwPrivate,
	"external": KwExternal,
	"internal": KwInternal,
	"struct":   KwStruct,
	"func":     KwFunc,
	"return":   KwReturn,
	"if":       KwIf,
	"else":     KwElse,
	"while":    KwWhile,
	"for":      KwFor,
	"break":    KwBreak,
	"continue": KwContinue,
	"true":     KwTrue,
	"false":    KwFalse,
	"sizeof":   KwSizeof,
	"input":    KwInput,
	"desc":     KwDesc,
	"variadic": KwVariadic,
	"do":       KwDo,
}

// Token is one lexical unit.
type Token struct {
	Kind Kind
	Text string
	Line int
}
