package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"supportagent/config"
)

var forbiddenKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE", "REPLACE", "GRANT", "REVOKE",
}

// DatabaseTool runs read-only queries against the configured MySQL server.
// Each call opens its own connection; there is no pool to keep warm for a
// tool invoked a few times per conversation.
type DatabaseTool struct {
	cfg config.DatabaseConfig
}

func NewDatabaseTool(cfg config.DatabaseConfig) *DatabaseTool {
	return &DatabaseTool{cfg: cfg}
}

type queryResult struct {
	Database  string           `json:"database"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
	MaxRows   int              `json:"max_rows"`
}

// validateQuery rejects anything but read queries before a connection is
// even opened.
func validateQuery(query string) error {
	upper := strings.ToUpper(strings.TrimSpace(query))

	if !strings.HasPrefix(upper, "SELECT") &&
		!strings.HasPrefix(upper, "DESCRIBE") &&
		!strings.HasPrefix(upper, "SHOW") {
		return fmt.Errorf("only SELECT, DESCRIBE and SHOW queries are allowed")
	}

	for _, keyword := range forbiddenKeywords {
		if containsKeyword(upper, keyword) {
			return fmt.Errorf("query contains forbidden keyword: %s", keyword)
		}
	}

	return nil
}

// containsKeyword matches whole words only, so a column named
// "created_at" does not trip the CREATE check.
func containsKeyword(upper, keyword string) bool {
	idx := 0
	for {
		pos := strings.Index(upper[idx:], keyword)
		if pos < 0 {
			return false
		}
		pos += idx

		beforeOK := pos == 0 || !isWordChar(upper[pos-1])
		end := pos + len(keyword)
		afterOK := end == len(upper) || !isWordChar(upper[end])
		if beforeOK && afterOK {
			return true
		}
		idx = pos + 1
	}
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// Query runs one read-only query against the named database and returns the
// rows as JSON, capped at the configured row limit.
func (t *DatabaseTool) Query(ctx context.Context, database, query string) (string, error) {
	if err := validateQuery(query); err != nil {
		return "", &ArgumentError{Tool: "query_database", Reason: err.Error()}
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%ds&readTimeout=%ds",
		t.cfg.Username, t.cfg.Password, t.cfg.Host, t.cfg.Port, database,
		t.cfg.TimeoutSeconds, t.cfg.TimeoutSeconds)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return "", &ExecutionError{Tool: "query_database", Cause: err}
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return "", &ExecutionError{Tool: "query_database",
			Cause: fmt.Errorf("query failed: %w", err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return "", &ExecutionError{Tool: "query_database", Cause: err}
	}

	maxRows := t.cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 100
	}

	result := queryResult{
		Database: database,
		Rows:     []map[string]any{},
		MaxRows:  maxRows,
	}

	for rows.Next() {
		if len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return "", &ExecutionError{Tool: "query_database", Cause: err}
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return "", &ExecutionError{Tool: "query_database", Cause: err}
	}

	result.RowCount = len(result.Rows)

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode query result: %w", err)
	}
	return string(payload), nil
}

// RegisterDatabaseTool adds the read-only query tool to the registry.
func RegisterDatabaseTool(reg *Registry, dbTool *DatabaseTool) error {
	def := Definition{
		Tool: mcptypes.NewTool("query_database",
			mcptypes.WithDescription("Run a read-only SQL query (SELECT, DESCRIBE or SHOW) against the MySQL server and return the rows as JSON. Write statements are rejected."),
			mcptypes.WithString("database",
				mcptypes.Required(),
				mcptypes.Description("Database name to query"),
			),
			mcptypes.WithString("query",
				mcptypes.Required(),
				mcptypes.Description("SQL SELECT, DESCRIBE or SHOW query to execute"),
			),
		),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			database, _ := args["database"].(string)
			query, _ := args["query"].(string)
			return dbTool.Query(ctx, database, query)
		},
	}
	return reg.Register(def)
}
