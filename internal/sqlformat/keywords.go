package sqlformat

var keywords = toSet(
	"ALL", "ALTER", "AND", "ANY", "AS", "ASC", "BETWEEN", "BY", "CASE", "CAST",
	"CLONE", "CREATE", "CROSS", "CURRENT", "DATABASE", "DELETE", "DESC",
	"DISTINCT", "DROP", "ELSE", "END", "EXCEPT", "EXCLUDE", "EXISTS", "FALSE",
	"FIRST", "FOLLOWING", "FROM", "FULL", "FUNCTION", "GROUP", "HANDLER",
	"HAVING", "IF", "ILIKE", "IMMUTABLE", "IN", "INNER", "INSERT", "INTERSECT",
	"INTO", "IS", "JOIN", "LANGUAGE", "LAST", "LATERAL", "LEFT", "LIKE",
	"LIMIT", "MATCHED", "MERGE", "MINUS", "NATURAL", "NOT", "NULL", "NULLS",
	"OFFSET", "ON", "OR", "ORDER", "OUTER", "OVER", "PACKAGES", "PARTITION",
	"PRECEDING", "PROCEDURE", "QUALIFY", "RANGE", "RECURSIVE", "RENAME",
	"REPLACE", "RETURNS", "RIGHT", "ROWS", "RUNTIME_VERSION", "SCHEMA",
	"SECURE", "SELECT", "SET", "SHOW", "TABLE", "TEMPORARY", "THEN", "TOP",
	"TRANSIENT", "TRUE", "UNBOUNDED", "UNION", "UPDATE", "USE", "USING",
	"VALUES", "VIEW", "VOLATILE", "WAREHOUSE", "WHEN", "WHERE", "WINDOW",
	"WITH",
)

// operandKeywords end an operand, so a sign after them is binary.
var operandKeywords = toSet("END", "NULL", "TRUE", "FALSE", "CURRENT", "FOLLOWING", "PRECEDING")

// joinModifiers may precede JOIN.
var joinModifiers = toSet("NATURAL", "LEFT", "RIGHT", "FULL", "INNER", "OUTER", "CROSS")

// tableClauseEnders close a FROM clause.
var tableClauseEnders = toSet(
	"WHERE", "GROUP", "HAVING", "QUALIFY", "ORDER", "LIMIT", "OFFSET",
	"UNION", "INTERSECT", "EXCEPT", "MINUS", "WINDOW",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func isKeyword(t Token) bool {
	return t.Kind == Word && keywords[t.upper()]
}
