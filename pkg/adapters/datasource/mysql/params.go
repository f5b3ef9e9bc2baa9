package mysql

import (
	"fmt"
	"regexp"
	"strings"
)

// namedParamPattern matches :name placeholders. MySQL's wire protocol
// only knows ordinal ? placeholders, so named parameters are rewritten
// before execution.
var namedParamPattern = regexp.MustCompile(`:([a-zA-Z_][a-zA-Z0-9_]*)`)

// bindNamedParams rewrites :name placeholders to ? and returns the
// argument values in placeholder order. A placeholder without a matching
// parameter is an error; unused parameters are ignored.
func bindNamedParams(query string, params map[string]any) (string, []any, error) {
	if len(params) == 0 {
		return query, nil, nil
	}

	var args []any
	var missing string
	rewritten := namedParamPattern.ReplaceAllStringFunc(query, func(match string) string {
		name := strings.TrimPrefix(match, ":")
		value, ok := params[name]
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		args = append(args, value)
		return "?"
	})

	if missing != "" {
		return "", nil, fmt.Errorf("query references parameter %q but no value was provided", missing)
	}

	return rewritten, args, nil
}

// rowReturningPrefixes are the statement kinds that produce a row set.
// Everything else goes through Exec and reports affected rows.
var rowReturningPrefixes = []string{"SELECT", "SHOW", "DESCRIBE", "DESC", "EXPLAIN", "WITH"}

// isRowReturning reports whether the statement produces a row set.
func isRowReturning(query string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range rowReturningPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}
