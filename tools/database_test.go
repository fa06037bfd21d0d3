package tools

import "testing"

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"simple select", "SELECT * FROM users", false},
		{"lowercase select", "select id, name from users where id = 1", false},
		{"describe", "DESCRIBE users", false},
		{"show tables", "SHOW TABLES", false},
		{"leading whitespace", "  SELECT 1", false},
		{"delete", "DELETE FROM users", true},
		{"update", "UPDATE users SET name = 'x'", true},
		{"insert", "INSERT INTO users VALUES (1)", true},
		{"drop", "DROP TABLE users", true},
		{"select with embedded drop", "SELECT 1; DROP TABLE users", true},
		{"empty", "", true},
		{"column named like keyword", "SELECT created_at, updated_at FROM orders", false},
		{"table named like keyword", "SELECT * FROM updates", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateQuery(%q): got err=%v, wantErr=%v", tt.query, err, tt.wantErr)
			}
		})
	}
}

func TestContainsKeyword(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		keyword string
		want    bool
	}{
		{"exact word", "DELETE FROM T", "DELETE", true},
		{"word at end", "SELECT 1; DROP", "DROP", true},
		{"prefix of longer word", "SELECT * FROM UPDATES", "UPDATE", false},
		{"suffix of longer word", "SELECT UNDROP FROM T", "DROP", false},
		{"underscore boundary", "SELECT CREATED_AT FROM T", "CREATE", false},
		{"absent", "SELECT 1", "DELETE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := containsKeyword(tt.text, tt.keyword)
			if got != tt.want {
				t.Errorf("containsKeyword(%q, %q): got %v, want %v", tt.text, tt.keyword, got, tt.want)
			}
		})
	}
}
