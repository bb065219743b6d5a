package accounts

import (
	"reflect"
	"strings"
	"testing"
)

// Registration writes every mapped column, so the shipped migration has to
// name each one exactly as the bun tags do.
func TestMigrationCoversAccountColumns(t *testing.T) {
	sql, err := migrationsFS.ReadFile("data/sql/migrations/20250101000000_create_accounts.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	ddl := string(sql)

	typ := reflect.TypeOf(Account{})
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("bun")
		if tag == "" || strings.HasPrefix(tag, "table:") {
			continue
		}
		column := strings.Split(tag, ",")[0]
		if column == "" {
			continue
		}
		if !strings.Contains(ddl, column+" ") {
			t.Errorf("migration does not define column %q for field %s", column, field.Name)
		}
	}
}
