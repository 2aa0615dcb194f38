package visit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/careflow/careflow/internal/domain/audit"
	"github.com/careflow/careflow/internal/platform/auth"
)

func newTestHandler() (*Handler, *fixture) {
	f := newFixture()
	return NewHandler(f.svc), f
}

// request builds an echo context carrying the actor's identity claims, the
// way the auth middleware would.
func request(e *echo.Echo, method, path, body string, actor Actor) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, actor.ID.String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, actor.Roles)
	ctx = context.WithValue(ctx, auth.FacilityIDKey, actor.FacilityID)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_CreateVisit(t *testing.T) {
	h, f := newTestHandler()
	e := echo.New()

	c, rec := request(e, http.MethodPost, "/api/v1/visits",
		`{"patient_id":"`+uuid.New().String()+`"}`, f.actor)
	if err := h.CreateVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var v Visit
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if v.CurrentStage != StageRegistered {
		t.Errorf("expected registered, got %s", v.CurrentStage)
	}
	if v.FacilityID != f.actor.FacilityID {
		t.Error("visit must be scoped to the actor's facility")
	}
}

func TestHandler_RouteVisit(t *testing.T) {
	h, f := newTestHandler()
	e := echo.New()
	v := f.newVisit(t, StageRegistered)

	c, rec := request(e, http.MethodPost, "/api/v1/visits/"+v.ID.String()+"/route",
		`{"destination_stage":"at_triage"}`, f.actor)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	if err := h.RouteVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["success"] != true || resp["stage"] != "at_triage" {
		t.Errorf("unexpected response: %v", resp)
	}
	if _, present := resp["forced"]; present {
		t.Error("unforced response must omit the forced field")
	}
}

func TestHandler_RouteVisit_Forced(t *testing.T) {
	h, f := newTestHandler()
	e := echo.New()
	v := f.newVisit(t, StageRegistered)

	admin := Actor{ID: uuid.New(), FacilityID: f.actor.FacilityID, Roles: []string{"admin"}}
	c, rec := request(e, http.MethodPost, "/api/v1/visits/"+v.ID.String()+"/route",
		`{"destination_stage":"admitted","force":true}`, admin)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	if err := h.RouteVisit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp["forced"] != true {
		t.Errorf("expected forced response, got %v", resp)
	}
	if resp["routing_status"] != string(RoutingInProgress) {
		t.Errorf("expected routing_in_progress, got %v", resp["routing_status"])
	}
}

func TestHandler_RouteVisit_BadID(t *testing.T) {
	h, f := newTestHandler()
	e := echo.New()

	c, _ := request(e, http.MethodPost, "/api/v1/visits/nope/route",
		`{"destination_stage":"at_triage"}`, f.actor)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	err := h.RouteVisit(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetTimeline(t *testing.T) {
	h, f := newTestHandler()
	e := echo.New()
	v := f.newVisit(t, StageRegistered)

	c, rec := request(e, http.MethodGet, "/api/v1/visits/"+v.ID.String()+"/timeline", "", f.actor)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	if err := h.GetTimeline(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entries []*StageEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(entries) != 1 || entries[0].Stage != StageRegistered {
		t.Errorf("expected single registered entry, got %v", entries)
	}
}

func TestHandler_GetVisit_CrossFacility(t *testing.T) {
	h, f := newTestHandler()
	e := echo.New()
	v := f.newVisit(t, StageRegistered)

	outsider := Actor{ID: uuid.New(), FacilityID: uuid.New(), Roles: []string{"admin"}}
	c, _ := request(e, http.MethodGet, "/api/v1/visits/"+v.ID.String(), "", outsider)
	c.SetParamNames("id")
	c.SetParamValues(v.ID.String())

	err := h.GetVisit(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for cross-facility read, got %v", err)
	}
}

func TestJourneyError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrInvalidStage, http.StatusBadRequest},
		{ErrInvalidTransition, http.StatusConflict},
		{ErrPaymentGateBlocked, http.StatusConflict},
		{ErrClinicalGateBlocked, http.StatusConflict},
		{ErrStageConflict, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{&audit.DurabilityError{Primary: errors.New("p"), Outbox: errors.New("o")}, http.StatusInternalServerError},
		{errors.New("something else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		var httpErr *echo.HTTPError
		if !errors.As(journeyError(tc.err), &httpErr) {
			t.Fatalf("journeyError(%v) did not produce an *echo.HTTPError", tc.err)
		}
		if httpErr.Code != tc.code {
			t.Errorf("journeyError(%v) = %d, want %d", tc.err, httpErr.Code, tc.code)
		}
	}
}

func TestJourneyError_DurabilityBody(t *testing.T) {
	err := journeyError(&audit.DurabilityError{Primary: errors.New("p"), Outbox: errors.New("o")})
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatal("expected *echo.HTTPError")
	}
	body, ok := httpErr.Message.(map[string]interface{})
	if !ok {
		t.Fatalf("expected structured body, got %T", httpErr.Message)
	}
	if body["error"] != "audit_durability_failure" {
		t.Errorf("expected audit_durability_failure marker, got %v", body["error"])
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h, _ := newTestHandler()
	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	want := map[string]bool{
		"GET /api/v1/visits/active":       false,
		"GET /api/v1/visits/:id":          false,
		"GET /api/v1/visits/:id/timeline": false,
		"POST /api/v1/visits":             false,
		"POST /api/v1/visits/:id/route":   false,
		"POST /api/v1/visits/:id/stage":   false,
	}
	for _, r := range e.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("route not registered: %s", key)
		}
	}
}
