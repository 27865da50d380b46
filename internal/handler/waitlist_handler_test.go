package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clevermock-web/internal/domain"
	"clevermock-web/internal/service"
	"clevermock-web/internal/testutil"
)

func newWaitlistHandler() (*WaitlistHandler, *testutil.MockWaitlistRepository, *testutil.MockWaitlistNotifier) {
	repo := testutil.NewMockWaitlistRepository()
	notifier := testutil.NewMockWaitlistNotifier()
	return NewWaitlistHandler(service.NewWaitlistService(repo, notifier)), repo, notifier
}

func TestWaitlistHandler_Join(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		seed        string
		wantStatus  int
		wantSuccess bool
		wantMessage string
		wantEmail   string
	}{
		{
			name:        "new_email",
			body:        `{"email":"Ada@Example.com"}`,
			wantStatus:  http.StatusCreated,
			wantSuccess: true,
			wantMessage: "Successfully joined the waitlist!",
			wantEmail:   "ada@example.com",
		},
		{
			name:        "invalid_email",
			body:        `{"email":"not-an-email"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please provide a valid email address",
		},
		{
			name:        "missing_email",
			body:        `{}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please provide a valid email address",
		},
		{
			name:        "malformed_body",
			body:        `{"email":`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please provide a valid email address",
		},
		{
			name:        "duplicate_ignores_case",
			body:        `{"email":"ADA@example.com"}`,
			seed:        "ada@example.com",
			wantStatus:  http.StatusConflict,
			wantMessage: "This email is already on the waitlist",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, repo, _ := newWaitlistHandler()
			if tt.seed != "" {
				repo.Entries[tt.seed] = testutil.NewTestWaitlistEntry(testutil.WithEntryEmail(tt.seed))
			}

			req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			h.Join(w, req)

			testutil.AssertStatusCode(t, w, tt.wantStatus)
			testutil.AssertHeader(t, w, "Content-Type", "application/json")
			resp := testutil.DecodeJSON[WaitlistResponse](t, w)
			if resp.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v", resp.Success, tt.wantSuccess)
			}
			if resp.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMessage)
			}
			if tt.wantEmail != "" {
				if resp.Data == nil || resp.Data.Email != tt.wantEmail {
					t.Errorf("data = %+v, want email %q", resp.Data, tt.wantEmail)
				}
				if _, ok := repo.Entries[tt.wantEmail]; !ok {
					t.Errorf("entry %q was not stored", tt.wantEmail)
				}
			} else if resp.Data != nil {
				t.Errorf("unexpected data on failure: %+v", resp.Data)
			}
		})
	}
}

func TestWaitlistHandler_StoreFailure(t *testing.T) {
	h, repo, notifier := newWaitlistHandler()
	repo.CreateFunc = func(ctx context.Context, entry *domain.WaitlistEntry) error {
		return testutil.ErrMockFailure
	}

	w := httptest.NewRecorder()
	h.Join(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/waitlist", map[string]string{"email": "ada@example.com"}))

	testutil.AssertStatusCode(t, w, http.StatusInternalServerError)
	resp := testutil.DecodeJSON[WaitlistResponse](t, w)
	if resp.Success || resp.Message != "Something went wrong. Please try again later." {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(notifier.Calls()) != 0 {
		t.Error("no confirmation should be requested when the signup fails")
	}
}

func TestWaitlistHandler_NotifierFailureStillSucceeds(t *testing.T) {
	h, _, notifier := newWaitlistHandler()
	notifier.NotifyFunc = func(ctx context.Context, entry *domain.WaitlistEntry) error {
		return testutil.ErrMockFailure
	}

	w := httptest.NewRecorder()
	h.Join(w, testutil.NewJSONRequest(t, http.MethodPost, "/api/waitlist", map[string]string{"email": "ada@example.com"}))

	testutil.AssertStatusCode(t, w, http.StatusCreated)
	if got := notifier.Calls(); len(got) != 1 {
		t.Errorf("notifier calls = %v, want 1", got)
	}
}
