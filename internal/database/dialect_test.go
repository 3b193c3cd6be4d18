package database

import (
	"strings"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "SELECT id FROM users WHERE username = ? AND email = ?"
		if got := dialect.RewriteQuery(query); got != query {
			t.Errorf("RewriteQuery() = %v, want unchanged query", got)
		}
	})
}

func TestDialectPostgres(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("RewriteQuery", func(t *testing.T) {
		query := "SELECT 1 FROM friendships WHERE user_id1 = ? AND user_id2 = ?"
		expected := "SELECT 1 FROM friendships WHERE user_id1 = $1 AND user_id2 = $2"
		if got := dialect.RewriteQuery(query); got != expected {
			t.Errorf("RewriteQuery() = %v, want %v", got, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		if !dialect.SupportsLastInsertId() {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("DSNAddsParseTime", func(t *testing.T) {
		dsn := dialect.DSN(DialectConfig{URL: "user:pass@tcp(localhost:3306)/fittrack"})
		if !strings.Contains(dsn, "parseTime=true") {
			t.Errorf("DSN() = %v, want parseTime=true appended", dsn)
		}
	})

	t.Run("DSNKeepsExistingParseTime", func(t *testing.T) {
		url := "user:pass@tcp(localhost:3306)/fittrack?parseTime=true"
		if got := dialect.DSN(DialectConfig{URL: url}); got != url {
			t.Errorf("DSN() = %v, want unchanged DSN", got)
		}
	})
}

func TestSchemaStatementsCoverCoreTables(t *testing.T) {
	dialects := map[string]Dialect{
		"sqlite":   NewSQLiteDialect(),
		"postgres": NewPostgresDialect(),
		"mysql":    NewMySQLDialect(),
	}
	tables := []string{"users", "sessions", "password_reset_tokens", "friend_requests", "friendships"}

	for name, dialect := range dialects {
		t.Run(name, func(t *testing.T) {
			schema := strings.Join(dialect.SchemaStatements(), "\n")
			for _, table := range tables {
				if !strings.Contains(schema, table) {
					t.Errorf("schema for %s missing table %s", name, table)
				}
			}
			if !strings.Contains(schema, "user_id1 < user_id2") {
				t.Errorf("schema for %s missing canonical pair check", name)
			}
			if !strings.Contains(schema, "sender_id <> receiver_id") {
				t.Errorf("schema for %s missing self-request check", name)
			}
		})
	}
}
