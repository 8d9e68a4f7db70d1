package sqlformat

import (
	"strings"
)

// Options controls Format.
type Options struct {
	// SubqueriesToCTEs hoists derived tables into a leading WITH clause.
	SubqueriesToCTEs bool
}

// Format pretty prints every statement in sql. Keywords are upper-cased,
// major clauses start on their own line and subqueries are indented.
// Identifier case and comments are preserved.
func Format(sql string, opts Options) (string, error) {
	toks, err := Tokenize(sql)
	if err != nil {
		return "", err
	}
	stmts, err := parse(sql, toks)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, st := range stmts {
		nodes := st.nodes
		if opts.SubqueriesToCTEs {
			nodes = hoist(nodes)
		}

		p := newPrinter()
		p.query(nodes)
		if st.terminated {
			p.depth = 0
			p.emit(Token{Kind: Semicolon, Text: ";"})
		}

		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.String())
		b.WriteString("\n")
	}
	return b.String(), nil
}
