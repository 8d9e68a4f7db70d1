package sqlformat

import (
	"strings"
)

// node is either a single token or a parenthesized group of nodes.
type node struct {
	tok      Token
	children []node
	group    bool
}

func leaf(kind Kind, text string) node {
	return node{tok: Token{Kind: kind, Text: text}}
}

func wrap(children []node) node {
	return node{tok: Token{Kind: LParen, Text: "("}, children: children, group: true}
}

func (n node) isWord(words ...string) bool {
	if n.group || n.tok.Kind != Word {
		return false
	}
	up := n.tok.upper()
	for _, w := range words {
		if up == w {
			return true
		}
	}
	return false
}

// statement is the nodes of one statement and whether a semicolon ended it.
type statement struct {
	nodes      []node
	terminated bool
}

// parse groups tokens by parentheses and splits them into statements.
func parse(sql string, toks []Token) ([]statement, error) {
	var (
		stmts []statement
		stack [][]node
		opens []Token
		cur   []node
	)

	for _, t := range toks {
		switch t.Kind {
		case LParen:
			stack = append(stack, cur)
			opens = append(opens, t)
			cur = nil
		case RParen:
			if len(stack) == 0 {
				return nil, syntaxError(sql, t.Pos, "unbalanced ')'")
			}
			g := node{tok: opens[len(opens)-1], children: cur, group: true}
			cur = append(stack[len(stack)-1], g)
			stack = stack[:len(stack)-1]
			opens = opens[:len(opens)-1]
		case Semicolon:
			if len(stack) > 0 {
				return nil, syntaxError(sql, opens[len(opens)-1].Pos, "unbalanced '(' before ';'")
			}
			if hasCode(cur) {
				stmts = append(stmts, statement{nodes: cur, terminated: true})
			}
			cur = nil
		default:
			cur = append(cur, node{tok: t})
		}
	}

	if len(stack) > 0 {
		return nil, syntaxError(sql, opens[len(opens)-1].Pos, "unbalanced '('")
	}
	if hasCode(cur) {
		stmts = append(stmts, statement{nodes: cur})
	} else if len(cur) > 0 && len(stmts) > 0 {
		// trailing comments after the last semicolon stay with it
		last := &stmts[len(stmts)-1]
		last.nodes = append(last.nodes, cur...)
	} else if len(cur) > 0 {
		stmts = append(stmts, statement{nodes: cur})
	}
	return stmts, nil
}

func hasCode(nodes []node) bool {
	for _, n := range nodes {
		if n.group || !n.tok.isComment() {
			return true
		}
	}
	return false
}

// firstCode returns the index of the first non-comment node, or -1.
func firstCode(nodes []node) int {
	for i, n := range nodes {
		if n.group || !n.tok.isComment() {
			return i
		}
	}
	return -1
}

// isQuery reports whether nodes read as a SELECT or WITH query.
func isQuery(nodes []node) bool {
	i := firstCode(nodes)
	return i >= 0 && nodes[i].isWord("SELECT", "WITH")
}

// Split returns the statements of a script with surrounding whitespace
// removed. Semicolons inside strings, identifiers and comments do not split,
// and comment-only fragments are dropped.
func Split(sql string) ([]string, error) {
	toks, err := Tokenize(sql)
	if err != nil {
		return nil, err
	}

	var (
		out   []string
		start = 0
		code  = false
		depth = 0
	)
	flush := func(end int) {
		if code {
			out = append(out, strings.TrimSpace(sql[start:end]))
		}
		code = false
	}

	for _, t := range toks {
		switch t.Kind {
		case LParen:
			depth++
		case RParen:
			depth--
		case Semicolon:
			if depth == 0 {
				flush(t.Pos)
				start = t.Pos + 1
				continue
			}
		}
		if !t.isComment() {
			code = true
		}
	}
	flush(len(sql))

	return out, nil
}
