// internal/handlers/queryagent/validator.go
package queryagent

import (
	"fmt"
	"regexp"
	"strings"
)

// The generated query is untrusted input. The gate admits only a single
// read-only statement over the two known relations; anything else is
// rejected before it reaches the executor.

var allowedRelations = map[string]struct{}{
	"transactions": {},
	"goal":         {},
}

var mutatingKeywords = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|create|truncate|grant|revoke|copy)\b`)

var relationRefs = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_\.]*)`)

// cteNames captures names defined in a WITH clause so they are not
// mistaken for unknown relations.
var cteNames = regexp.MustCompile(`(?i)\b([a-zA-Z_][a-zA-Z0-9_]*)\s+as\s*\(`)

func validateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	trimmed = strings.TrimSuffix(trimmed, ";")

	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only read-only SELECT statements are allowed")
	}

	if m := mutatingKeywords.FindString(trimmed); m != "" {
		return fmt.Errorf("mutating keyword %q is not allowed", strings.ToUpper(m))
	}

	allowed := make(map[string]struct{}, len(allowedRelations)+2)
	for rel := range allowedRelations {
		allowed[rel] = struct{}{}
	}
	for _, m := range cteNames.FindAllStringSubmatch(trimmed, -1) {
		allowed[strings.ToLower(m[1])] = struct{}{}
	}

	for _, m := range relationRefs.FindAllStringSubmatch(trimmed, -1) {
		rel := strings.ToLower(strings.Trim(m[1], `"`))
		// Strip a schema qualifier like public.transactions.
		if idx := strings.LastIndex(rel, "."); idx >= 0 {
			rel = rel[idx+1:]
		}
		if _, ok := allowed[rel]; !ok {
			return fmt.Errorf("relation %q is not in the allow-list", rel)
		}
	}

	return nil
}
