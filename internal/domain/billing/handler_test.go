package billing

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

	"github.com/careflow/careflow/internal/platform/auth"
)

func billingContext(e *echo.Echo, method, path, body string, facilityID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, auth.UserIDKey, uuid.New().String())
	ctx = context.WithValue(ctx, auth.UserRolesKey, []string{"cashier"})
	ctx = context.WithValue(ctx, auth.FacilityIDKey, facilityID)
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_RecordCharge(t *testing.T) {
	repo := newMockRepo()
	h := NewHandler(NewService(repo))
	e := echo.New()
	facility := uuid.New()
	visitID := uuid.New()

	c, rec := billingContext(e, http.MethodPost, "/api/v1/visits/"+visitID.String()+"/charges",
		`{"category":"consultation","amount_cents":5000,"description":"GP consult"}`, facility)
	c.SetParamNames("id")
	c.SetParamValues(visitID.String())

	if err := h.RecordCharge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var ch Charge
	if err := json.Unmarshal(rec.Body.Bytes(), &ch); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if ch.VisitID != visitID {
		t.Error("charge must be bound to the path visit")
	}
	if ch.FacilityID != facility {
		t.Error("charge must be scoped to the actor's facility")
	}
}

func TestHandler_RecordCharge_BadCategory(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	e := echo.New()
	visitID := uuid.New()

	c, _ := billingContext(e, http.MethodPost, "/api/v1/visits/"+visitID.String()+"/charges",
		`{"category":"parking","amount_cents":100}`, uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(visitID.String())

	err := h.RecordCharge(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_GetPaymentStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	h := NewHandler(svc)
	e := echo.New()
	facility := uuid.New()
	visitID := uuid.New()

	ch := &Charge{VisitID: visitID, FacilityID: facility, Category: CategoryPharmacy, AmountCents: 900}
	if err := svc.RecordCharge(context.Background(), ch); err != nil {
		t.Fatalf("record: %v", err)
	}

	c, rec := billingContext(e, http.MethodGet, "/api/v1/visits/"+visitID.String()+"/payment-status", "", facility)
	c.SetParamNames("id")
	c.SetParamValues(visitID.String())

	if err := h.GetPaymentStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var status PaymentStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !status.UnpaidPharmacy {
		t.Error("expected unpaid pharmacy flag")
	}
	if status.OutstandingCents != 900 {
		t.Errorf("expected 900 outstanding cents, got %d", status.OutstandingCents)
	}
}
