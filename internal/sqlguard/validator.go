// Package sqlguard screens free-form SQL before it reaches the database.
//
// The store runs SingleStatement again before executing anything, so a
// multi-statement query fails there even if Validate were bypassed.
package sqlguard

import (
	"regexp"
	"strings"

	"github.com/xiaot623/rolo/internal/domain"
)

var dangerousPatterns = []struct {
	Pattern *regexp.Regexp
	Reason  string
}{
	{
		Pattern: regexp.MustCompile(`(?i)\battach\b`),
		Reason:  "ATTACH is not allowed",
	},
	{
		Pattern: regexp.MustCompile(`(?i)\bdetach\b`),
		Reason:  "DETACH is not allowed",
	},
	{
		Pattern: regexp.MustCompile(`(?i)\bpragma\b`),
		Reason:  "PRAGMA is not allowed",
	},
	{
		Pattern: regexp.MustCompile(`(?i)\bvacuum\b`),
		Reason:  "VACUUM is not allowed",
	},
	{
		Pattern: regexp.MustCompile(`(?i)\bload_extension\b`),
		Reason:  "load_extension is not allowed",
	},
}

// transactionKeywords start statements that would leave a transaction open
// across calls.
var transactionKeywords = map[string]bool{
	"BEGIN":     true,
	"COMMIT":    true,
	"END":       true,
	"ROLLBACK":  true,
	"SAVEPOINT": true,
	"RELEASE":   true,
}

var (
	leadingKeyword = regexp.MustCompile(`^[\s(]*([A-Za-z]+)`)
	modifyingWord  = regexp.MustCompile(`(?i)\b(insert|update|delete|replace)\b`)
)

// Validate checks that query is a single statement without comments,
// transaction control or operations that reach outside the contact database.
// It returns a SAFETY_REJECTED *domain.ToolError describing the first problem
// found.
func Validate(query string) error {
	body, err := statementBody(query)
	if err != nil {
		return err
	}

	for _, token := range []string{"--", "/*", "*/"} {
		if strings.Contains(body, token) {
			return reject("comments are not allowed")
		}
	}

	if m := leadingKeyword.FindStringSubmatch(body); m != nil && transactionKeywords[strings.ToUpper(m[1])] {
		return reject("transaction control (" + strings.ToUpper(m[1]) + ") is not allowed")
	}

	for _, p := range dangerousPatterns {
		if p.Pattern.MatchString(body) {
			return reject(p.Reason)
		}
	}
	return nil
}

// SingleStatement returns an error unless query holds exactly one statement,
// optionally followed by a single semicolon.
func SingleStatement(query string) error {
	_, err := statementBody(query)
	return err
}

// statementBody returns query with literals masked and the trailing
// semicolon removed.
func statementBody(query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", reject("empty statement")
	}

	masked, ok := maskLiterals(query)
	if !ok {
		return "", reject("unterminated string literal")
	}

	body := strings.TrimSpace(masked)
	body = strings.TrimSpace(strings.TrimSuffix(body, ";"))
	if body == "" {
		return "", reject("empty statement")
	}
	if strings.Contains(body, ";") {
		return "", reject("multiple statements are not allowed")
	}
	return body, nil
}

// IsReadOnly reports whether a validated statement only reads data. Anything
// it does not recognise is treated as a mutation.
func IsReadOnly(query string) bool {
	masked, ok := maskLiterals(query)
	if !ok {
		return false
	}
	m := leadingKeyword.FindStringSubmatch(masked)
	if m == nil {
		return false
	}
	switch strings.ToUpper(m[1]) {
	case "SELECT", "VALUES", "EXPLAIN":
		return true
	case "WITH":
		return !modifyingWord.MatchString(masked)
	}
	return false
}

func reject(reason string) *domain.ToolError {
	return domain.NewToolError(domain.ErrorKindSafetyRejected, "SQL rejected: %s", reason)
}

// maskLiterals blanks out the content of quoted strings and identifiers so
// that semicolons, comment tokens and keywords inside them are treated as
// data. Doubled quotes are escapes. It reports false for an unterminated
// literal.
func maskLiterals(query string) (string, bool) {
	var b strings.Builder
	b.Grow(len(query))

	var quote rune
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote == 0 {
			if r == '\'' || r == '"' || r == '`' {
				quote = r
			}
			b.WriteRune(r)
			continue
		}
		if r == quote {
			if i+1 < len(runes) && runes[i+1] == quote {
				b.WriteString("  ")
				i++
				continue
			}
			quote = 0
			b.WriteRune(r)
			continue
		}
		b.WriteRune(' ')
	}
	return b.String(), quote == 0
}
