// Package sqlformat pretty prints Snowflake SQL and can hoist derived tables
// into common table expressions.
package sqlformat

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jar-ry/Snowflake-Data-Science/pkg/errors"
)

// Kind classifies a token.
type Kind int

const (
	Word Kind = iota
	QuotedIdent
	String
	Number
	LineComment
	BlockComment
	Operator
	Comma
	Semicolon
	LParen
	RParen
)

// Token is a lexical unit with its byte offset in the input.
type Token struct {
	Kind Kind
	Text string
	Pos  int
}

func (t Token) isComment() bool {
	return t.Kind == LineComment || t.Kind == BlockComment
}

// upper returns the keyword form of a word token.
func (t Token) upper() string {
	if t.Kind != Word {
		return ""
	}
	return strings.ToUpper(t.Text)
}

var multiCharOps = []string{"::", "<=", ">=", "<>", "!=", "||", "=>", "->"}

// Tokenize splits sql into tokens, dropping whitespace. Unterminated
// strings, quoted identifiers, dollar blocks and block comments are errors.
func Tokenize(sql string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(sql) {
		c := sql[i]
		start := i

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
			continue

		case strings.HasPrefix(sql[i:], "--") || strings.HasPrefix(sql[i:], "//"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			toks = append(toks, Token{Kind: LineComment, Text: strings.TrimRight(sql[i:i+end], "\r"), Pos: start})
			i += end
			continue

		case strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				return nil, syntaxError(sql, start, "unterminated block comment")
			}
			i += end + 4
			toks = append(toks, Token{Kind: BlockComment, Text: sql[start:i], Pos: start})
			continue

		case strings.HasPrefix(sql[i:], "$$"):
			end := strings.Index(sql[i+2:], "$$")
			if end < 0 {
				return nil, syntaxError(sql, start, "unterminated $$ block")
			}
			i += end + 4
			toks = append(toks, Token{Kind: String, Text: sql[start:i], Pos: start})
			continue

		case c == '\'':
			end, ok := scanQuoted(sql, i, '\'', true)
			if !ok {
				return nil, syntaxError(sql, start, "unterminated string literal")
			}
			i = end
			toks = append(toks, Token{Kind: String, Text: sql[start:i], Pos: start})
			continue

		case c == '"':
			end, ok := scanQuoted(sql, i, '"', false)
			if !ok {
				return nil, syntaxError(sql, start, "unterminated quoted identifier")
			}
			i = end
			toks = append(toks, Token{Kind: QuotedIdent, Text: sql[start:i], Pos: start})
			continue

		case c >= '0' && c <= '9' || (c == '.' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' && !prevIsWord(toks)):
			i = scanNumber(sql, i)
			toks = append(toks, Token{Kind: Number, Text: sql[start:i], Pos: start})
			continue

		case isWordStart(rune(c)) || c >= 0x80:
			i = scanWord(sql, i)
			toks = append(toks, Token{Kind: Word, Text: sql[start:i], Pos: start})
			continue

		case c == ',':
			toks = append(toks, Token{Kind: Comma, Text: ",", Pos: start})
		case c == ';':
			toks = append(toks, Token{Kind: Semicolon, Text: ";", Pos: start})
		case c == '(':
			toks = append(toks, Token{Kind: LParen, Text: "(", Pos: start})
		case c == ')':
			toks = append(toks, Token{Kind: RParen, Text: ")", Pos: start})

		default:
			op := string(c)
			for _, m := range multiCharOps {
				if strings.HasPrefix(sql[i:], m) {
					op = m
					break
				}
			}
			toks = append(toks, Token{Kind: Operator, Text: op, Pos: start})
			i += len(op)
			continue
		}
		i++
	}
	return toks, nil
}

// scanQuoted returns the offset just past the closing quote. A doubled quote
// is an escaped quote; string literals also honour backslash escapes.
func scanQuoted(sql string, i int, quote byte, backslash bool) (int, bool) {
	for j := i + 1; j < len(sql); j++ {
		switch sql[j] {
		case '\\':
			if backslash {
				j++
			}
		case quote:
			if j+1 < len(sql) && sql[j+1] == quote {
				j++
				continue
			}
			return j + 1, true
		}
	}
	return 0, false
}

func scanNumber(sql string, i int) int {
	seenExp := false
	for i < len(sql) {
		c := sql[i]
		switch {
		case c >= '0' && c <= '9' || c == '.':
			i++
		case (c == 'e' || c == 'E') && !seenExp:
			seenExp = true
			i++
			if i < len(sql) && (sql[i] == '+' || sql[i] == '-') {
				i++
			}
		default:
			return i
		}
	}
	return i
}

func scanWord(sql string, i int) int {
	for i < len(sql) {
		r := rune(sql[i])
		if r >= 0x80 {
			// consume the whole UTF-8 sequence
			i++
			for i < len(sql) && sql[i]&0xC0 == 0x80 {
				i++
			}
			continue
		}
		if !isWordStart(r) && !unicode.IsDigit(r) && r != '$' {
			return i
		}
		i++
	}
	return i
}

func isWordStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func prevIsWord(toks []Token) bool {
	if len(toks) == 0 {
		return false
	}
	k := toks[len(toks)-1].Kind
	return k == Word || k == QuotedIdent || k == RParen
}

func syntaxError(sql string, pos int, reason string) *errors.AppError {
	line, col := position(sql, pos)
	return errors.New(errors.ErrCodeSQLSyntax, fmt.Sprintf("SQL syntax error at line %d, column %d: %s", line, col, reason)).
		WithContext("line", line).
		WithContext("column", col)
}

func position(sql string, pos int) (int, int) {
	if pos > len(sql) {
		pos = len(sql)
	}
	line := strings.Count(sql[:pos], "\n") + 1
	col := pos - strings.LastIndex(sql[:pos], "\n")
	return line, col
}
