package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSearchEvents(t *testing.T) {
	repo := newMockRepo()
	for _, action := range []string{"stage_routed", "stage_routed", "visit_registered"} {
		ev := journeyEvent()
		ev.Action = action
		if err := repo.Insert(context.Background(), ev); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}

	h := NewHandler(repo)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-events?action=stage_routed", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SearchEvents(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data  []*Event `json:"data"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("expected 2 matching events, got total=%d len=%d", resp.Total, len(resp.Data))
	}
	for _, ev := range resp.Data {
		if ev.Action != "stage_routed" {
			t.Errorf("filter leaked action %s", ev.Action)
		}
	}
}
