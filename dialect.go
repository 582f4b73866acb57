package loam

import "strings"

// Dialect identifies one of the two supported SQL back ends. The two
// dialects differ in JSON access syntax and quoting but generated
// fragments must be behaviorally equivalent for identical inputs.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectSQLServer Dialect = "sqlserver"
)

// ParseDialect resolves a dialect by name, case-insensitively.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	}
	return "", NewUnsupportedDialectError(name)
}

// QuoteLiteral renders a string as a single-quoted SQL literal with
// embedded quotes doubled. This is the only escaping applied anywhere in
// the engine: identifiers (aliases, column names, field developer names)
// are trusted to be pre-validated by the caller.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
