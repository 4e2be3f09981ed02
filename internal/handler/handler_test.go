package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hold-a-spot/internal/repository"
)

// request runs a handler against a synthetic request and returns the
// recorder.  Handlers validate input before touching storage, so these
// tests run against repositories with no live database behind them.
func request(t *testing.T, h echo.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	for k, v := range params {
		c.SetParamNames(k)
		c.SetParamValues(v)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func wantBodyContains(t *testing.T, rec *httptest.ResponseRecorder, substr string) {
	t.Helper()
	if !strings.Contains(rec.Body.String(), substr) {
		t.Fatalf("body %q does not contain %q", rec.Body.String(), substr)
	}
}

// wantErrorField decodes the {error} body and compares the message exactly.
// Needed when the message itself contains quotes, which JSON escapes in the
// raw body.
func wantErrorField(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body %q is not an error response: %v", rec.Body.String(), err)
	}
	if body.Error != want {
		t.Fatalf("error = %q, want %q", body.Error, want)
	}
}

func newUserHandler() *UserHandler {
	return NewUserHandler(repository.NewUserRepo(nil), repository.NewReservationRepo(nil))
}

func newReservationHandler() *ReservationHandler {
	return NewReservationHandler(
		repository.NewUserRepo(nil),
		repository.NewCatalogRepo(nil, nil, 0),
		repository.NewReservationRepo(nil),
	)
}

func TestCreateUserValidation(t *testing.T) {
	h := newUserHandler()

	rec := request(t, h.CreateUser, http.MethodPost, "/users", `{}`, nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Email is required")

	rec = request(t, h.CreateUser, http.MethodPost, "/users", `{"email":"not-an-email"}`, nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid email format")

	rec = request(t, h.CreateUser, http.MethodPost, "/users", `{"email":`, nil)
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestGetCreditsValidation(t *testing.T) {
	h := newUserHandler()

	rec := request(t, h.GetCredits, http.MethodGet, "/users/nope/credits", "", map[string]string{"id": "nope"})
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid user ID format")

	rec = request(t, h.GetCredits, http.MethodGet,
		"/users/3f0c8e9e-0000-4000-8000-000000000001/credits?week_start=not-a-date", "",
		map[string]string{"id": "3f0c8e9e-0000-4000-8000-000000000001"})
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid week_start format")
}

func TestListUserReservationsValidation(t *testing.T) {
	h := newUserHandler()

	rec := request(t, h.ListUserReservations, http.MethodGet, "/users/bogus/reservations", "",
		map[string]string{"id": "bogus"})
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid user ID format")

	rec = request(t, h.ListUserReservations, http.MethodGet,
		"/users/3f0c8e9e-0000-4000-8000-000000000001/reservations?status=completed", "",
		map[string]string{"id": "3f0c8e9e-0000-4000-8000-000000000001"})
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid status filter")
}

func TestListFacilitiesValidation(t *testing.T) {
	h := NewCatalogHandler(repository.NewCatalogRepo(nil, nil, 0))

	rec := request(t, h.ListFacilities, http.MethodGet, "/facilities?type=pool", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantErrorField(t, rec, `Invalid facility type. Must be "court" or "bay"`)

	rec = request(t, h.ListFacilities, http.MethodGet, "/facilities?sport_id=123", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid sport ID format")
}

func TestCreateReservationValidation(t *testing.T) {
	h := newReservationHandler()

	rec := request(t, h.Create, http.MethodPost, "/reservations", `{"user_id":"x"}`, nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Missing required fields: facility_id, start_time, end_time")

	body := `{"user_id":"x","facility_id":"y","start_time":"2026-09-07T10:00:00Z","end_time":"2026-09-07T11:00:00Z"}`
	rec = request(t, h.Create, http.MethodPost, "/reservations", body, nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid user ID format")

	body = `{"user_id":"3f0c8e9e-0000-4000-8000-000000000001","facility_id":"y","start_time":"2026-09-07T10:00:00Z","end_time":"2026-09-07T11:00:00Z"}`
	rec = request(t, h.Create, http.MethodPost, "/reservations", body, nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid facility ID format")

	body = `{"user_id":"3f0c8e9e-0000-4000-8000-000000000001","facility_id":"3f0c8e9e-0000-4000-8000-000000000002","start_time":"tomorrow","end_time":"2026-09-07T11:00:00Z"}`
	rec = request(t, h.Create, http.MethodPost, "/reservations", body, nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid start_time format")
}

func TestCancelReservationValidation(t *testing.T) {
	h := newReservationHandler()

	rec := request(t, h.Cancel, http.MethodDelete, "/reservations/abc", "", map[string]string{"id": "abc"})
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid reservation ID format")

	rec = request(t, h.Cancel, http.MethodDelete,
		"/reservations/3f0c8e9e-0000-4000-8000-000000000001?cancelled_by=system", "",
		map[string]string{"id": "3f0c8e9e-0000-4000-8000-000000000001"})
	wantStatus(t, rec, http.StatusBadRequest)
	wantErrorField(t, rec, `Invalid cancelled_by. Must be "user" or "admin"`)
}

func TestListReservationsValidation(t *testing.T) {
	h := newReservationHandler()

	rec := request(t, h.List, http.MethodGet, "/reservations?status=pending", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid status filter")

	rec = request(t, h.List, http.MethodGet, "/reservations?facility_id=7", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid facility ID format")

	rec = request(t, h.List, http.MethodGet, "/reservations?start_date=last-tuesday", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid start_date format")
}

func TestCheckAvailabilityValidation(t *testing.T) {
	h := newReservationHandler()

	rec := request(t, h.CheckAvailability, http.MethodGet,
		"/reservations/availability?facility_id=3f0c8e9e-0000-4000-8000-000000000002&start_time=2026-09-07T10:00:00Z", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Missing required parameter: end_time")

	rec = request(t, h.CheckAvailability, http.MethodGet,
		"/reservations/availability?facility_id=short&start_time=2026-09-07T10:00:00Z&end_time=2026-09-07T11:00:00Z", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid facility ID format")

	rec = request(t, h.CheckAvailability, http.MethodGet,
		"/reservations/availability?facility_id=3f0c8e9e-0000-4000-8000-000000000002&start_time=x&end_time=2026-09-07T11:00:00Z", "", nil)
	wantStatus(t, rec, http.StatusBadRequest)
	wantBodyContains(t, rec, "Invalid start_time format")
}

func TestResetAuthorization(t *testing.T) {
	h := NewResetHandler(repository.NewUserRepo(nil), "topsecret")

	req := httptest.NewRequest(http.MethodPost, "/credits/reset", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if err := h.Run(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	wantStatus(t, rec, http.StatusUnauthorized)
	wantBodyContains(t, rec, "Unauthorized")

	req = httptest.NewRequest(http.MethodPost, "/credits/reset", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	c = echo.New().NewContext(req, rec)
	if err := h.Run(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	wantStatus(t, rec, http.StatusUnauthorized)

	// an unset secret must never authorize anything
	disabled := NewResetHandler(repository.NewUserRepo(nil), "")
	req = httptest.NewRequest(http.MethodPost, "/credits/reset", nil)
	req.Header.Set("Authorization", "Bearer ")
	rec = httptest.NewRecorder()
	c = echo.New().NewContext(req, rec)
	if err := disabled.Run(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestAuthorizedTokenMatch(t *testing.T) {
	h := NewResetHandler(repository.NewUserRepo(nil), "topsecret")
	if !h.authorized("Bearer topsecret") {
		t.Fatal("exact token should authorize")
	}
	if h.authorized("topsecret") {
		t.Fatal("missing Bearer prefix should not authorize")
	}
	if h.authorized("Bearer topsecret2") {
		t.Fatal("longer token should not authorize")
	}
}
