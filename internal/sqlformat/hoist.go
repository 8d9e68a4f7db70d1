package sqlformat

import (
	"fmt"
	"strings"
)

type cte struct {
	header []node // name, optionally followed by a column list
	body   []node
}

type hoister struct {
	ctes    []cte
	used    map[string]bool
	seq     int
	hoisted int
}

// hoist rewrites derived tables in FROM and JOIN clauses as common table
// expressions, innermost first. Existing CTEs keep their order ahead of the
// tables hoisted from the main query. Statements without a query are
// returned unchanged.
func hoist(nodes []node) []node {
	start := queryStart(nodes)
	if start < 0 {
		return nodes
	}
	prefix, q := nodes[:start], nodes[start:]

	h := &hoister{used: make(map[string]bool)}
	collectTables(nodes, h.used)

	rest := q
	recursive := false
	var existing []cte
	if q[0].isWord("WITH") {
		var ok bool
		existing, recursive, rest, ok = splitWith(q)
		if !ok {
			return nodes
		}
		for _, c := range existing {
			h.used[nameKey(c.header[0].tok)] = true
		}
	}

	for _, c := range existing {
		c.body = h.query(c.body)
		h.ctes = append(h.ctes, c)
	}
	main := h.query(rest)

	if h.hoisted == 0 {
		return nodes
	}

	out := append([]node{}, prefix...)
	out = append(out, leaf(Word, "WITH"))
	if recursive {
		out = append(out, leaf(Word, "RECURSIVE"))
	}
	for i, c := range h.ctes {
		if i > 0 {
			out = append(out, leaf(Comma, ","))
		}
		out = append(out, c.header...)
		out = append(out, leaf(Word, "AS"), wrap(c.body))
	}
	return append(out, main...)
}

func (h *hoister) query(nodes []node) []node {
	out := make([]node, 0, len(nodes))
	inFrom, expectTable := false, false

	for i := 0; i < len(nodes); i++ {
		n := nodes[i]

		switch {
		case n.group:
			if expectTable && isQuery(n.children) {
				if alias, width, ok := aliasAfter(nodes, i+1); ok && selfContained(n.children) {
					name := h.add(alias, n.children)
					out = append(out, leaf(kindOf(name), name))
					if alias != "" && name != alias {
						out = append(out, leaf(Word, "AS"), leaf(kindOf(alias), alias))
					}
					i += width
					expectTable = false
					continue
				}
			}
			if !startsWithWith(n.children) {
				n.children = h.query(n.children)
			}
			expectTable = false

		case n.tok.isComment():

		case n.tok.Kind == Comma:
			expectTable = inFrom

		case n.tok.Kind == Word:
			up := n.tok.upper()
			switch {
			case up == "FROM":
				inFrom, expectTable = true, true
			case up == "JOIN":
				expectTable = true
			case joinModifiers[up]:
			case up == "SELECT" || tableClauseEnders[up]:
				inFrom, expectTable = false, false
			default:
				expectTable = false
			}

		default:
			expectTable = false
		}

		out = append(out, n)
	}
	return out
}

func (h *hoister) add(alias string, body []node) string {
	if !startsWithWith(body) {
		body = h.query(body)
	}
	name := h.name(alias)
	h.ctes = append(h.ctes, cte{header: []node{leaf(kindOf(name), name)}, body: body})
	h.hoisted++
	return name
}

// name reserves alias, or a fresh _q_<n> name when alias is empty or taken.
func (h *hoister) name(alias string) string {
	if alias != "" {
		key := nameKey(Token{Kind: kindOf(alias), Text: alias})
		if !h.used[key] {
			h.used[key] = true
			return alias
		}
	}
	for {
		name := fmt.Sprintf("_q_%d", h.seq)
		h.seq++
		if key := strings.ToUpper(name); !h.used[key] {
			h.used[key] = true
			return name
		}
	}
}

// aliasAfter reads an optional "[AS] alias" at nodes[j]. ok is false when
// the alias carries a column list, which a CTE reference cannot express.
func aliasAfter(nodes []node, j int) (alias string, width int, ok bool) {
	name := func(k int) bool {
		return k < len(nodes) && !nodes[k].group && isName(nodes[k].tok)
	}
	columnList := func(k int) bool {
		return k < len(nodes) && nodes[k].group
	}

	switch {
	case j < len(nodes) && nodes[j].isWord("AS"):
		if !name(j+1) || columnList(j+2) {
			return "", 0, false
		}
		return nodes[j+1].tok.Text, 2, true
	case name(j):
		if columnList(j + 1) {
			return "", 0, false
		}
		return nodes[j].tok.Text, 1, true
	}
	return "", 0, true
}

// selfContained reports whether every qualified column reference in body
// names a table or alias the body introduces itself. A derived table that
// reads an outer query's columns cannot move to the top-level WITH clause.
// Unqualified outer references are not detected.
func selfContained(body []node) bool {
	defined := make(map[string]bool)
	var qualifiers []string
	scanScope(body, defined, &qualifiers)
	for _, q := range qualifiers {
		if !defined[q] {
			return false
		}
	}
	return true
}

// scanScope records the tables and aliases nodes introduce and the
// qualifiers of the column references they make, nested groups included.
func scanScope(nodes []node, defined map[string]bool, qualifiers *[]string) {
	inFrom, expectTable := false, false
	define := func(j int) int {
		alias, width, _ := aliasAfter(nodes, j)
		if alias != "" {
			defined[nameKey(Token{Kind: kindOf(alias), Text: alias})] = true
		}
		return width
	}

	for i := 0; i < len(nodes); i++ {
		n := nodes[i]

		switch {
		case n.group:
			scanScope(n.children, defined, qualifiers)
			if expectTable {
				i += define(i + 1)
			}
			expectTable = false

		case n.tok.isComment():

		case isName(n.tok):
			chain, next := nameChain(nodes, i)
			switch {
			case expectTable:
				for _, seg := range chain {
					defined[nameKey(seg)] = true
				}
				next += define(next)
			case len(chain) >= 2 && !(next < len(nodes) && nodes[next].group):
				*qualifiers = append(*qualifiers, nameKey(chain[len(chain)-2]))
			}
			i = next - 1
			expectTable = false

		case n.tok.Kind == Comma:
			expectTable = inFrom

		case n.tok.Kind == Word:
			up := n.tok.upper()
			switch {
			case up == "FROM":
				inFrom, expectTable = true, true
			case up == "JOIN":
				expectTable = true
			case joinModifiers[up]:
			case up == "SELECT" || tableClauseEnders[up]:
				inFrom, expectTable = false, false
			default:
				expectTable = false
			}

		default:
			expectTable = false
		}
	}
}

func isName(t Token) bool {
	return t.Kind == QuotedIdent || t.Kind == Word && !isKeyword(t)
}

// nameChain reads a dotted name starting at nodes[i], returning its segments
// and the index after it. A trailing * is kept as a segment.
func nameChain(nodes []node, i int) ([]Token, int) {
	chain := []Token{nodes[i].tok}
	j := i + 1
	for j+1 < len(nodes) && !nodes[j].group && nodes[j].tok.Text == "." && !nodes[j+1].group {
		next := nodes[j+1].tok
		if !isName(next) && next.Text != "*" {
			break
		}
		chain = append(chain, next)
		j += 2
	}
	return chain, j
}

// splitWith separates a leading WITH list from the query that follows it.
func splitWith(q []node) (ctes []cte, recursive bool, rest []node, ok bool) {
	i := 1
	skip := func() {
		for i < len(q) && !q[i].group && q[i].tok.isComment() {
			i++
		}
	}

	skip()
	if i < len(q) && q[i].isWord("RECURSIVE") {
		recursive = true
		i++
	}

	for {
		skip()
		if i >= len(q) || q[i].group || (q[i].tok.Kind != Word && q[i].tok.Kind != QuotedIdent) {
			return nil, false, nil, false
		}
		header := []node{q[i]}
		i++
		skip()
		if i < len(q) && q[i].group {
			header = append(header, q[i])
			i++
			skip()
		}
		if i >= len(q) || !q[i].isWord("AS") {
			return nil, false, nil, false
		}
		i++
		skip()
		if i >= len(q) || !q[i].group {
			return nil, false, nil, false
		}
		ctes = append(ctes, cte{header: header, body: q[i].children})
		i++
		skip()
		if i < len(q) && !q[i].group && q[i].tok.Kind == Comma {
			i++
			continue
		}
		return ctes, recursive, q[i:], true
	}
}

// collectTables marks every table name referenced after FROM or JOIN so a
// hoisted CTE never shadows a real table.
func collectTables(nodes []node, used map[string]bool) {
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.group {
			collectTables(n.children, used)
			continue
		}
		if !n.isWord("FROM", "JOIN") {
			continue
		}
		j := i + 1
		last := -1
		for j < len(nodes) && !nodes[j].group && (nodes[j].tok.Kind == Word || nodes[j].tok.Kind == QuotedIdent) {
			last = j
			if j+1 < len(nodes) && !nodes[j+1].group && nodes[j+1].tok.Text == "." {
				j += 2
				continue
			}
			break
		}
		if last >= 0 {
			used[nameKey(nodes[last].tok)] = true
		}
	}
}

func queryStart(nodes []node) int {
	for i, n := range nodes {
		if n.isWord("SELECT", "WITH") {
			return i
		}
	}
	return -1
}

func startsWithWith(nodes []node) bool {
	i := firstCode(nodes)
	return i >= 0 && nodes[i].isWord("WITH")
}

// nameKey folds unquoted names the way Snowflake resolves them.
func nameKey(t Token) string {
	if t.Kind == QuotedIdent {
		return t.Text
	}
	return strings.ToUpper(t.Text)
}

func kindOf(name string) Kind {
	if strings.HasPrefix(name, `"`) {
		return QuotedIdent
	}
	return Word
}
