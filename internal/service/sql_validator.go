package service

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SQL validation errors. Validation is a hard security boundary: generated SQL
// runs against production data, so only read statements under a row ceiling
// ever reach the executor.
var (
	ErrEmptySQL      = errors.New("generated SQL is empty")
	ErrNotSelect     = errors.New("only SELECT statements are allowed")
	ErrMultipleStmts = errors.New("multiple SQL statements are not allowed")
)

// forbiddenSQLKeywords are rejected anywhere in the statement, as whole words.
// SELECT queries have no business containing any of them.
var forbiddenSQLKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE",
	"GRANT", "REVOKE", "COPY", "EXECUTE", "CALL", "DO", "MERGE", "VACUUM",
	"SET", "RESET", "LISTEN", "NOTIFY",
}

var (
	limitPattern      = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	sqlCommentPattern = regexp.MustCompile(`--[^\n]*|/\*[\s\S]*?\*/`)
)

// ValidateSQL checks a generated statement and returns a normalized form safe
// to execute: comments stripped, single SELECT statement only, no write or DDL
// keywords, and a LIMIT no higher than maxRows (injected when absent).
func ValidateSQL(sql string, maxRows int) (string, error) {
	cleaned := strings.TrimSpace(sqlCommentPattern.ReplaceAllString(sql, " "))
	cleaned = strings.TrimSuffix(cleaned, ";")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", ErrEmptySQL
	}

	if strings.ContainsRune(cleaned, ';') {
		return "", ErrMultipleStmts
	}

	upper := strings.ToUpper(cleaned)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "", ErrNotSelect
	}

	for _, keyword := range forbiddenSQLKeywords {
		pattern := regexp.MustCompile(`\b` + keyword + `\b`)
		if pattern.MatchString(upper) {
			return "", fmt.Errorf("%w: statement contains %s", ErrNotSelect, keyword)
		}
	}

	return enforceRowLimit(cleaned, maxRows), nil
}

// enforceRowLimit injects LIMIT maxRows when absent and clamps an existing
// LIMIT that exceeds the ceiling.
func enforceRowLimit(sql string, maxRows int) string {
	match := limitPattern.FindStringSubmatch(sql)
	if match == nil {
		return sql + " LIMIT " + strconv.Itoa(maxRows)
	}

	limit, err := strconv.Atoi(match[1])
	if err != nil || limit > maxRows {
		return limitPattern.ReplaceAllString(sql, "LIMIT "+strconv.Itoa(maxRows))
	}

	return sql
}
