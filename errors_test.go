package tabular

import (
	"errors"
	"testing"
)

func TestServerErrorSatisfiesDatabaseError(t *testing.T) {
	var dbErr DatabaseError = &ServerError{Code: 42, Name: "UNKNOWN", Message: "boom"}
	if dbErr.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestConnectionErrorSatisfiesDatabaseError(t *testing.T) {
	var dbErr DatabaseError = NewConnectionError("dial", errors.New("refused"))
	if dbErr.Error() == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestInterfaceErrorIsNotADatabaseError(t *testing.T) {
	var err error = &InterfaceError{Op: "ParseDSN", Err: errors.New("bad dsn")}
	if _, ok := err.(DatabaseError); ok {
		t.Fatal("InterfaceError must sit outside the DatabaseError hierarchy (spec.md §7)")
	}
}

func TestServerErrorNestedUnwrap(t *testing.T) {
	inner := &ServerError{Code: 1, Name: "INNER", Message: "cause"}
	outer := &ServerError{Code: 2, Name: "OUTER", Message: "wrapper", Nested: inner}
	if !errors.Is(outer, inner) {
		t.Error("errors.Is should walk through Nested via Unwrap")
	}
}

func TestServerErrorCategoryBuckets(t *testing.T) {
	cases := []struct {
		code int32
		want ServerErrorCategory
	}{
		{1, CategoryOperationalError},
		{99, CategoryOperationalError},
		{100, CategoryDataError},
		{199, CategoryDataError},
		{200, CategoryIntegrityError},
		{300, CategoryProgrammingError},
		{400, CategoryNotSupportedError},
		{499, CategoryNotSupportedError},
		{0, CategoryInternalError},
		{500, CategoryInternalError},
	}
	for _, c := range cases {
		got := (&ServerError{Code: c.code}).Category()
		if got != c.want {
			t.Errorf("code %d: got category %d, want %d", c.code, got, c.want)
		}
	}
}
