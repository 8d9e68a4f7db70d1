package sqlformat

import (
	"bytes"
	"strings"
)

const indentSize = 2

// printer lays out nodes one clause per line.
type printer struct {
	output      *bytes.Buffer
	depth       int
	lineDepth   int // depth of the line being written
	atLineStart bool
	breakNext   bool
	last        Token
	hasLast     bool
	signPending bool // last token was a unary sign
}

func newPrinter() *printer {
	return &printer{
		output:      &bytes.Buffer{},
		atLineStart: true,
	}
}

// String returns the formatted output without trailing newlines.
func (p *printer) String() string {
	return strings.TrimRight(p.output.String(), "\n ")
}

func (p *printer) newline() {
	if p.atLineStart {
		return
	}
	p.output.WriteByte('\n')
	p.atLineStart = true
}

func (p *printer) emit(t Token) {
	if p.breakNext {
		p.newline()
		p.breakNext = false
	}

	if p.atLineStart {
		p.output.WriteString(strings.Repeat(" ", p.depth*indentSize))
		p.lineDepth = p.depth
	} else if p.hasLast && !p.signPending && needSpace(p.last, t) {
		p.output.WriteByte(' ')
	}

	text := t.Text
	if isKeyword(t) {
		text = strings.ToUpper(text)
	}
	p.output.WriteString(text)

	p.signPending = isSign(t) && (!p.hasLast || startsOperand(p.last))
	p.last, p.hasLast = t, true
	p.atLineStart = false
	if t.Kind == LineComment {
		p.breakNext = true
	}
}

func needSpace(prev, cur Token) bool {
	switch {
	case cur.Kind == Comma || cur.Kind == RParen || cur.Kind == Semicolon:
		return false
	case prev.Kind == LParen:
		return false
	case isTight(cur.Text) && cur.Kind == Operator, isTight(prev.Text) && prev.Kind == Operator:
		return false
	case cur.Kind == Operator && cur.Text == "]", prev.Kind == Operator && prev.Text == "[":
		return false
	case cur.Kind == Operator && cur.Text == "[":
		return !(prev.Kind == Word || prev.Kind == QuotedIdent || prev.Kind == RParen)
	case prev.Kind == Operator && prev.Text == "@":
		return false
	case cur.Kind == LParen:
		return !(prev.Kind == Word && !isKeyword(prev) || prev.Kind == QuotedIdent)
	}
	return true
}

func isSign(t Token) bool {
	return t.Kind == Operator && (t.Text == "-" || t.Text == "+")
}

// startsOperand reports whether an operator after prev is a prefix sign
// rather than a binary operator.
func startsOperand(prev Token) bool {
	switch prev.Kind {
	case LParen, Comma, Operator:
		return true
	case Word:
		return isKeyword(prev) && !operandKeywords[prev.upper()]
	}
	return false
}

func isTight(op string) bool {
	return op == "." || op == "::" || op == ":"
}

// query prints a SELECT-like node list starting at the current depth.
func (p *printer) query(nodes []node) {
	base := p.depth
	defer func() { p.depth = base }()

	kind := ""
	if i := firstCode(nodes); i >= 0 && !nodes[i].group {
		kind = nodes[i].tok.upper()
	}

	clause := ""
	between := false

	for i := 0; i < len(nodes); i++ {
		n := nodes[i]

		if n.group {
			p.group(n)
			continue
		}

		switch n.tok.Kind {
		case Comma:
			p.emit(n.tok)
			if clause == "SELECT" || clause == "WITH" {
				p.newline()
			}
			continue

		case Word:
			if name, width := clauseAt(nodes, i, kind); name != "" {
				p.depth = base
				p.newline()
				for k := 0; k < width; k++ {
					p.emit(nodes[i+k].tok)
				}
				i += width - 1
				clause = name

				switch name {
				case "SELECT":
					for i+1 < len(nodes) && nodes[i+1].isWord("DISTINCT", "ALL") {
						i++
						p.emit(nodes[i].tok)
					}
					if i+2 < len(nodes) && nodes[i+1].isWord("TOP") {
						p.emit(nodes[i+1].tok)
						p.emit(nodes[i+2].tok)
						i += 2
					}
					p.depth = base + 1
					p.newline()
				case "WITH":
					p.depth = base
				default:
					p.depth = base + 1
				}
				continue
			}

			switch n.tok.upper() {
			case "BETWEEN":
				between = true
			case "AND", "OR":
				if breaksOnLogic(clause) {
					if n.tok.upper() == "AND" && between {
						between = false
					} else {
						p.newline()
					}
				}
			}
		}

		p.emit(n.tok)
	}
}

// group prints a parenthesized group. Subqueries get their own indented
// block, everything else stays inline.
func (p *printer) group(n node) {
	open := n.tok
	closing := Token{Kind: RParen, Text: ")"}

	if isQuery(n.children) {
		saved := p.depth
		p.emit(open)
		outer := p.lineDepth
		p.depth = outer + 1
		p.newline()
		p.query(n.children)
		p.depth = outer
		p.newline()
		p.emit(closing)
		p.depth = saved
		return
	}

	p.emit(open)
	for _, c := range n.children {
		if c.group {
			p.group(c)
			continue
		}
		p.emit(c.tok)
	}
	p.emit(closing)
}

// clauseAt reports the clause that starts at nodes[i] and how many words
// its keyword spans.
func clauseAt(nodes []node, i int, kind string) (string, int) {
	up := nodes[i].tok.upper()
	next := func(words ...string) bool {
		return i+1 < len(nodes) && nodes[i+1].isWord(words...)
	}

	switch up {
	case "SELECT", "FROM", "WHERE", "HAVING", "QUALIFY", "LIMIT", "OFFSET", "WINDOW", "WITH", "JOIN":
		return up, 1
	case "GROUP", "ORDER":
		if next("BY") {
			return up + " BY", 2
		}
	case "UNION", "INTERSECT", "EXCEPT", "MINUS":
		if next("ALL", "DISTINCT") {
			return up, 2
		}
		return up, 1
	case "SET":
		if kind == "UPDATE" {
			return up, 1
		}
	case "VALUES":
		if kind == "INSERT" {
			return up, 1
		}
	}

	if joinModifiers[up] {
		j := i
		for j < len(nodes) && !nodes[j].group && joinModifiers[nodes[j].tok.upper()] {
			j++
		}
		if j < len(nodes) && nodes[j].isWord("JOIN") {
			return "JOIN", j - i + 1
		}
	}
	return "", 0
}

func breaksOnLogic(clause string) bool {
	switch clause {
	case "WHERE", "HAVING", "QUALIFY", "JOIN":
		return true
	}
	return false
}
