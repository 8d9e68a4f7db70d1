package snowflake

import (
	"regexp"
	"strings"
)

var unquotedIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Ident renders name as an identifier. Plain names pass through so that
// Snowflake upper-cases them as usual; already quoted names are kept and
// anything else is double-quoted.
func Ident(name string) string {
	if unquotedIdent.MatchString(name) {
		return name
	}
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Qualify joins the non-empty parts into a dotted object name.
func Qualify(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, Ident(p))
		}
	}
	return strings.Join(out, ".")
}

// Literal renders s as a single-quoted string literal.
func Literal(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
