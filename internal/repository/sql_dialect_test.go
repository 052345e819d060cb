package repository

import (
	"strings"
	"testing"
)

func TestJSONTextExprByDialectSQLite(t *testing.T) {
	got := jsonTextExprByDialect("sqlite", "conditions", "origin_city")
	want := "json_extract(conditions, '$.\"origin_city\"')"
	if got != want {
		t.Fatalf("sqlite json expr mismatch, want %s got %s", want, got)
	}
}

func TestJSONTextExprByDialectPostgres(t *testing.T) {
	got := jsonTextExprByDialect("postgresql", "conditions", "origin_city")
	want := "(conditions::jsonb ->> 'origin_city')"
	if got != want {
		t.Fatalf("postgres json expr mismatch, want %s got %s", want, got)
	}
}

func TestLikeConditionSkipsBlankColumns(t *testing.T) {
	condition, args := likeCondition(nil, []string{"origin_city", " ", "destination_city"}, " dal ")
	if len(args) != 2 {
		t.Fatalf("args len want 2 got %d", len(args))
	}
	if args[0] != "%dal%" {
		t.Fatalf("unexpected like arg: %v", args[0])
	}
	if condition != "origin_city LIKE ? OR destination_city LIKE ?" {
		t.Fatalf("unexpected condition: %s", condition)
	}
	if !strings.Contains(likeOperatorByDialect("postgres"), "ILIKE") {
		t.Fatalf("postgres should use ILIKE")
	}
}
