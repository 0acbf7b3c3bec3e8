// Package casing converts identifiers into the naming convention GitHub
// Actions variables use.
package casing

import "strings"

// UpperSnake converts a camelCase or PascalCase name to UPPER_SNAKE_CASE.
//
//	myVariableName  -> MY_VARIABLE_NAME
//	awsAccountId    -> AWS_ACCOUNT_ID
//	clusterNameEast -> CLUSTER_NAME_EAST
//	APIKey          -> API_KEY
//
// A separator goes between a lowercase letter or digit and a following
// uppercase letter, and between an uppercase run and the capitalized word
// that follows it. Everything else is kept as-is and uppercased, so the
// function is idempotent on its own output.
func UpperSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)

	for i, r := range runes {
		if i > 0 && isUpper(r) {
			prev := runes[i-1]
			switch {
			case isLower(prev) || isDigit(prev):
				b.WriteByte('_')
			case isUpper(prev) && i+1 < len(runes) && (isLower(runes[i+1]) || isDigit(runes[i+1])):
				// End of an acronym: "APIKey" splits before the K.
				b.WriteByte('_')
			}
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
