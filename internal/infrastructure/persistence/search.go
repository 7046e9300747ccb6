package persistence

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term as a literal
// substring. Use it with a LIKE ... ESCAPE '\' clause.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
