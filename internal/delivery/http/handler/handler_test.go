package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tutorinminutes-backend/internal/catalog"
	"tutorinminutes-backend/internal/delivery/dto"
	"tutorinminutes-backend/internal/service"
	"tutorinminutes-backend/internal/usecase"
	"tutorinminutes-backend/pkg/response"
	"tutorinminutes-backend/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type fakeTutorUsecase struct {
	usecase.TutorUsecase
	gotList  *dto.TutorListQuery
	gotDate  string
	checkErr error
}

func (f *fakeTutorUsecase) LoadCatalog(context.Context) ([]catalog.Tutor, error) { return nil, nil }

func (f *fakeTutorUsecase) ListTutors(_ context.Context, q *dto.TutorListQuery) (*dto.TutorListResponse, error) {
	f.gotList = q
	if q.Lat != nil && q.Lng == nil {
		return nil, usecase.ErrLocationIncomplete
	}
	return &dto.TutorListResponse{
		Tutors: []dto.TutorResponse{{ID: "1", Name: "Dr. Priya Sharma"}},
		Total:  41,
		Page:   2,
		Limit:  20,
	}, nil
}

func (f *fakeTutorUsecase) SearchTutors(ctx context.Context, q *dto.TutorListQuery) (*dto.TutorListResponse, error) {
	if strings.TrimSpace(q.Q) == "" {
		return nil, usecase.ErrSearchTermRequired
	}
	return f.ListTutors(ctx, q)
}

func (f *fakeTutorUsecase) GetTutor(_ context.Context, id string) (*dto.TutorResponse, error) {
	if id != "1" {
		return nil, usecase.ErrTutorNotFound
	}
	return &dto.TutorResponse{ID: "1"}, nil
}

func (f *fakeTutorUsecase) GetAvailability(_ context.Context, id string, q *dto.AvailabilityQuery) (*dto.AvailabilityResponse, error) {
	f.gotDate = q.Date
	return &dto.AvailabilityResponse{TutorID: id, Date: q.Date}, nil
}

func (f *fakeTutorUsecase) CheckService(_ context.Context, req *dto.CheckServiceRequest) (*dto.CheckServiceResponse, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return &dto.CheckServiceResponse{Available: true, Mode: req.Mode, Message: "Online sessions are available from anywhere"}, nil
}

type fakeBookingUsecase struct {
	createErr error
	cancelErr error
}

func (f *fakeBookingUsecase) GetMyBookings(context.Context) (*dto.BookingListResponse, error) {
	return &dto.BookingListResponse{}, nil
}

func (f *fakeBookingUsecase) CreateBooking(_ context.Context, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &dto.BookingResponse{ID: uuid.New(), TutorID: req.TutorID, Status: "pending"}, nil
}

func (f *fakeBookingUsecase) CancelBooking(context.Context, uuid.UUID) error {
	return f.cancelErr
}

type fakeChatUsecase struct{}

func (fakeChatUsecase) Reply(context.Context, *dto.ChatRequest) (*dto.ChatResponse, error) {
	return &dto.ChatResponse{Reply: "fallback", Fallback: true}, nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return body
}

func TestTutorHandler_ListTutors(t *testing.T) {
	uc := &fakeTutorUsecase{}
	h := NewTutorHandler(uc, validator.NewValidator())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tutors?subject=Mathematics&mode=offline&min_price=300&sort=price-low&page=2&utm=x", nil)
	rec := httptest.NewRecorder()
	h.ListTutors(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if uc.gotList.Subject != "Mathematics" || uc.gotList.Mode != "offline" || uc.gotList.Sort != "price-low" || uc.gotList.Page != 2 {
		t.Errorf("decoded query = %+v", uc.gotList)
	}
	if uc.gotList.MinPrice == nil || *uc.gotList.MinPrice != 300 {
		t.Errorf("MinPrice = %v, want 300", uc.gotList.MinPrice)
	}

	body := decodeBody(t, rec)
	if body.Meta == nil || body.Meta.Total != 41 || body.Meta.TotalPages != 3 {
		t.Errorf("meta = %+v, want total 41 over 3 pages", body.Meta)
	}
}

func TestTutorHandler_ListTutorsRejectsBadQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown mode", query: "mode=hybrid"},
		{name: "unknown sort", query: "sort=cheapest"},
		{name: "non numeric price", query: "min_price=cheap"},
		{name: "lat without lng", query: "lat=28.6"},
		{name: "limit too large", query: "limit=1000"},
		{name: "page too large", query: "page=2000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTutorHandler(&fakeTutorUsecase{}, validator.NewValidator())
			rec := httptest.NewRecorder()
			h.ListTutors(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tutors?"+tt.query, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestTutorHandler_SearchRequiresTerm(t *testing.T) {
	h := NewTutorHandler(&fakeTutorUsecase{}, validator.NewValidator())
	rec := httptest.NewRecorder()
	h.SearchTutors(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tutors/search", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestTutorHandler_Routes(t *testing.T) {
	uc := &fakeTutorUsecase{}
	h := NewTutorHandler(uc, validator.NewValidator())
	r := mux.NewRouter()
	r.HandleFunc("/tutors/{id}", h.GetTutor).Methods(http.MethodGet)
	r.HandleFunc("/tutors/{id}/availability", h.GetAvailability).Methods(http.MethodGet)

	tests := []struct {
		path       string
		wantStatus int
	}{
		{path: "/tutors/1", wantStatus: http.StatusOK},
		{path: "/tutors/404", wantStatus: http.StatusNotFound},
		{path: "/tutors/1/availability?date=2026-05-12", wantStatus: http.StatusOK},
		{path: "/tutors/1/availability?date=12-05-2026", wantStatus: http.StatusBadRequest},
		{path: "/tutors/1/availability", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.wantStatus)
		}
	}
	if uc.gotDate != "2026-05-12" {
		t.Errorf("date = %q", uc.gotDate)
	}
}

func TestTutorHandler_CheckService(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "online needs no location", body: `{"mode":"online"}`, wantStatus: http.StatusOK},
		{name: "offline with location", body: `{"mode":"offline","lat":28.6,"lng":77.2}`, wantStatus: http.StatusOK},
		{name: "offline without location", body: `{"mode":"offline"}`, wantStatus: http.StatusBadRequest},
		{name: "bad latitude", body: `{"lat":128.6,"lng":77.2}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"lat":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTutorHandler(&fakeTutorUsecase{}, validator.NewValidator())
			rec := httptest.NewRecorder()
			h.CheckService(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check-service", strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestBookingHandler_CreateBooking(t *testing.T) {
	validBody := `{"tutor_id":"1","subject":"Mathematics","mode":"online","date":"2026-05-12","time":"10:00","duration_minutes":60}`

	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
	}{
		{name: "created", body: validBody, wantStatus: http.StatusCreated},
		{name: "slot taken", body: validBody, createErr: service.ErrSlotTaken, wantStatus: http.StatusConflict},
		{name: "tutor missing", body: validBody, createErr: usecase.ErrTutorNotFound, wantStatus: http.StatusNotFound},
		{name: "past session", body: validBody, createErr: usecase.ErrSessionInPast, wantStatus: http.StatusBadRequest},
		{name: "outside area", body: validBody, createErr: usecase.ErrOutsideServiceArea, wantStatus: http.StatusBadRequest},
		{name: "bad time format", body: strings.Replace(validBody, `"10:00"`, `"10am"`, 1), wantStatus: http.StatusBadRequest},
		{name: "offline without location", body: strings.Replace(validBody, `"online"`, `"offline"`, 1), wantStatus: http.StatusBadRequest},
		{name: "unexpected failure", body: validBody, createErr: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(&fakeBookingUsecase{createErr: tt.createErr}, validator.NewValidator())
			rec := httptest.NewRecorder()
			h.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestBookingHandler_CancelBooking(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		cancelErr  error
		wantStatus int
	}{
		{name: "cancelled", id: uuid.NewString(), wantStatus: http.StatusOK},
		{name: "bad id", id: "42", wantStatus: http.StatusBadRequest},
		{name: "not owner", id: uuid.NewString(), cancelErr: usecase.ErrBookingNotOwned, wantStatus: http.StatusForbidden},
		{name: "twice", id: uuid.NewString(), cancelErr: usecase.ErrBookingAlreadyCancelled, wantStatus: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(&fakeBookingUsecase{cancelErr: tt.cancelErr}, validator.NewValidator())
			r := mux.NewRouter()
			r.HandleFunc("/bookings/{id}", h.CancelBooking).Methods(http.MethodDelete)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/bookings/"+tt.id, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestChatHandler_FallbackIsSuccess(t *testing.T) {
	h := NewChatHandler(fakeChatUsecase{}, validator.NewValidator())

	rec := httptest.NewRecorder()
	h.Reply(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Reply(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message: status = %d, want 400", rec.Code)
	}
}
