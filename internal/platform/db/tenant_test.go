package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestExtractTenantID_Sources(t *testing.T) {
	e := echo.New()

	// JWT claim wins over header, header wins over query, default closes.
	cases := []struct {
		name   string
		jwt    string
		header string
		query  string
		want   string
	}{
		{"jwt first", "jwt_tenant", "header_tenant", "query_tenant", "jwt_tenant"},
		{"header next", "", "header_tenant", "query_tenant", "header_tenant"},
		{"query next", "", "", "query_tenant", "query_tenant"},
		{"default last", "", "", "", "default"},
	}

	for _, tc := range cases {
		target := "/"
		if tc.query != "" {
			target = "/?tenant_id=" + tc.query
		}
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if tc.header != "" {
			req.Header.Set("X-Tenant-ID", tc.header)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		if tc.jwt != "" {
			c.Set("jwt_tenant_id", tc.jwt)
		}

		if got := extractTenantID(c, "default"); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestTenantIDPattern(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"clinic_a", true},
		{"CLINIC", true},
		{"tenant_1", true},
		{"A1B2C3", true},
		{"a-b", false},
		{"a.b", false},
		{"a b", false},
		{"a/b", false},
		{"", false},
		{"'; DROP TABLE visit", false},
		{"tenant@1", false},
	}

	for _, tt := range tests {
		if got := tenantIDPattern.MatchString(tt.input); got != tt.valid {
			t.Errorf("tenantIDPattern.MatchString(%q) = %v, want %v", tt.input, got, tt.valid)
		}
	}
}

func TestTenantMiddleware_RejectsInvalidTenant(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant-ID", "tenant-with-dash")
	c := e.NewContext(req, httptest.NewRecorder())

	// Rejection happens before any pool access, so a nil pool is safe here.
	h := TenantMiddleware(nil, "default")(func(c echo.Context) error {
		t.Fatal("handler must not run for an invalid tenant")
		return nil
	})
	err := h(c)

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestConnFromContext_Nil(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Error("expected nil conn from empty context")
	}
}

func TestTenantFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), TenantIDKey, "clinic_a")
	if got := TenantFromContext(ctx); got != "clinic_a" {
		t.Errorf("expected clinic_a, got %s", got)
	}
	if got := TenantFromContext(context.Background()); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestWithTx_NoConnection(t *testing.T) {
	_, _, err := WithTx(context.Background())
	if err == nil {
		t.Fatal("expected error when no connection in context")
	}
	if err.Error() != "no database connection in context" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestWithTenant_InvalidID(t *testing.T) {
	_, _, err := WithTenant(context.Background(), nil, "bad-tenant!")
	if err == nil {
		t.Error("expected error for invalid tenant ID")
	}
}

func TestCreateTenantSchema_InvalidID(t *testing.T) {
	for _, id := range []string{"tenant-with-dash", "ten ant", "drop;table", ""} {
		if err := CreateTenantSchema(context.Background(), nil, id, ""); err == nil {
			t.Errorf("expected error for invalid tenant ID %q", id)
		}
	}
}
