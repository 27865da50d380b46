package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"clevermock-web/internal/domain"
	"clevermock-web/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newUploadRequest builds the prepare form. An empty filename leaves out the file.
func newUploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/prepare/start", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPrepareHandler_Start_Success(t *testing.T) {
	env := newTestEnv(t)
	env.seedTokens(t, "access-1", "refresh-1")

	env.handle("POST /api/v1/prepare/start", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		file, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			defer file.Close()
			data, _ := io.ReadAll(file)
			assert.Equal(t, "resume.pdf", header.Filename)
			assert.Equal(t, "%PDF-1.4 resume", string(data))
		}
		assert.Equal(t, "Backend Engineer", r.FormValue("position"))
		assert.Equal(t, "Focus on Go", r.FormValue("instruction"))

		json.NewEncoder(w).Encode(map[string]string{
			"conversation_id":   "conv-42",
			"status":            "pending_review",
			"interview_details": "Plan v1",
		})
	})

	req := env.request(newUploadRequest(t, "resume.pdf", []byte("%PDF-1.4 resume"), map[string]string{
		"position":    "Backend Engineer",
		"instruction": "Focus on Go",
	}))
	w := httptest.NewRecorder()

	NewPrepareHandler(env.clients).Start(w, req)

	testutil.AssertStatusCode(t, w, http.StatusOK)
	conv := testutil.DecodeJSON[domain.ConversationContext](t, w)
	assert.Equal(t, "conv-42", conv.ConversationID)
	assert.Equal(t, "resume.pdf", conv.CVName)

	stored, err := env.context(t)
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationContext{
		ConversationID:   "conv-42",
		Position:         "Backend Engineer",
		Instruction:      "Focus on Go",
		CVName:           "resume.pdf",
		InterviewDetails: "Plan v1",
		Status:           "pending_review",
	}, stored)
}

func TestPrepareHandler_Start_RejectsUpload(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    []byte
		wantStatus int
		wantMsg    string
	}{
		{"missing_file", "", nil, http.StatusBadRequest, "Please upload a CV file"},
		{"wrong_type", "resume.txt", []byte("plain"), http.StatusBadRequest, "CV must be a PDF or Word document"},
		{"too_large", "resume.pdf", make([]byte, maxCVSize+1), http.StatusRequestEntityTooLarge, "CV must be 10MB or smaller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			calls := 0
			env.handle("POST /api/v1/prepare/start", func(w http.ResponseWriter, r *http.Request) {
				calls++
			})

			w := httptest.NewRecorder()
			NewPrepareHandler(env.clients).Start(w, env.request(newUploadRequest(t, tt.filename, tt.content, map[string]string{
				"position": "Backend Engineer",
			})))

			testutil.AssertJSONError(t, w, tt.wantStatus, tt.wantMsg)
			assert.Zero(t, calls)
			_, err := env.context(t)
			assert.ErrorIs(t, err, domain.ErrNoContext)
		})
	}
}

func TestPrepareHandler_Start_AcceptsWordDocuments(t *testing.T) {
	for _, name := range []string{"cv.doc", "CV.DOCX"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			env.handle("POST /api/v1/prepare/start", func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"conversation_id": "conv-1", "status": "ok"})
			})

			w := httptest.NewRecorder()
			NewPrepareHandler(env.clients).Start(w, env.request(newUploadRequest(t, name, []byte("doc"), nil)))

			testutil.AssertStatusCode(t, w, http.StatusOK)
		})
	}
}

func TestPrepareHandler_Start_SessionExpired(t *testing.T) {
	env := newTestEnv(t)
	env.seedTokens(t, "stale", "refresh-1")

	env.handle("POST /api/v1/prepare/start", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	})
	env.handle("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	w := httptest.NewRecorder()
	NewPrepareHandler(env.clients).Start(w, env.request(newUploadRequest(t, "cv.pdf", []byte("pdf"), nil)))

	testutil.AssertJSONError(t, w, http.StatusUnauthorized, "Could not validate credentials")
	assert.True(t, env.tokens(t).IsZero())
}

func TestPrepareHandler_Context(t *testing.T) {
	t.Run("no_context", func(t *testing.T) {
		env := newTestEnv(t)
		w := httptest.NewRecorder()
		NewPrepareHandler(env.clients).Context(w, env.request(httptest.NewRequest(http.MethodGet, "/api/prepare/context", nil)))

		testutil.AssertJSONError(t, w, http.StatusNotFound, "No interview found. Please prepare your interview first.")
	})

	t.Run("stored_context", func(t *testing.T) {
		env := newTestEnv(t)
		conv := testutil.NewTestConversation(testutil.WithConversationID("conv-7"))
		env.seedContext(t, *conv)

		w := httptest.NewRecorder()
		NewPrepareHandler(env.clients).Context(w, env.request(httptest.NewRequest(http.MethodGet, "/api/prepare/context", nil)))

		testutil.AssertStatusCode(t, w, http.StatusOK)
		assert.Equal(t, *conv, testutil.DecodeJSON[domain.ConversationContext](t, w))
	})
}

func TestPrepareHandler_Refine(t *testing.T) {
	t.Run("updates_plan", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedTokens(t, "access-1", "refresh-1")
		env.seedContext(t, *testutil.NewTestConversation(testutil.WithConversationID("conv-7")))

		env.handle("POST /api/v1/prepare/conv-7/refine", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "More system design please", r.FormValue("message"))
			json.NewEncoder(w).Encode(map[string]string{"interview_details": "Plan v2"})
		})

		w := httptest.NewRecorder()
		NewPrepareHandler(env.clients).Refine(w, env.request(testutil.NewJSONRequest(t, http.MethodPost, "/api/prepare/refine", map[string]string{
			"message": "More system design please",
		})))

		testutil.AssertStatusCode(t, w, http.StatusOK)
		stored, err := env.context(t)
		require.NoError(t, err)
		assert.Equal(t, "Plan v2", stored.InterviewDetails)
	})

	t.Run("empty_message", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedContext(t, *testutil.NewTestConversation())

		w := httptest.NewRecorder()
		NewPrepareHandler(env.clients).Refine(w, env.request(testutil.NewJSONRequest(t, http.MethodPost, "/api/prepare/refine", map[string]string{
			"message": "",
		})))

		testutil.AssertJSONError(t, w, http.StatusBadRequest, "Please enter a message")
	})

	t.Run("no_context", func(t *testing.T) {
		env := newTestEnv(t)

		w := httptest.NewRecorder()
		NewPrepareHandler(env.clients).Refine(w, env.request(testutil.NewJSONRequest(t, http.MethodPost, "/api/prepare/refine", map[string]string{
			"message": "hello",
		})))

		testutil.AssertJSONError(t, w, http.StatusNotFound, "No interview found. Please prepare your interview first.")
	})

	t.Run("backend_failure_keeps_plan", func(t *testing.T) {
		env := newTestEnv(t)
		conv := testutil.NewTestConversation(testutil.WithConversationID("conv-7"))
		env.seedContext(t, *conv)
		env.handle("POST /api/v1/prepare/conv-7/refine", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		w := httptest.NewRecorder()
		NewPrepareHandler(env.clients).Refine(w, env.request(testutil.NewJSONRequest(t, http.MethodPost, "/api/prepare/refine", map[string]string{
			"message": "hello",
		})))

		testutil.AssertJSONError(t, w, http.StatusInternalServerError, "Failed to refine details")
		stored, err := env.context(t)
		require.NoError(t, err)
		assert.Equal(t, conv.InterviewDetails, stored.InterviewDetails)
	})
}

func TestPrepareHandler_Accept(t *testing.T) {
	env := newTestEnv(t)
	env.seedContext(t, *testutil.NewTestConversation(testutil.WithConversationID("conv-7")))
	env.handle("POST /api/v1/prepare/conv-7/accept", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	w := httptest.NewRecorder()
	NewPrepareHandler(env.clients).Accept(w, env.request(httptest.NewRequest(http.MethodPost, "/api/prepare/accept", nil)))

	testutil.AssertStatusCode(t, w, http.StatusOK)
	stored, err := env.context(t)
	require.NoError(t, err)
	assert.Equal(t, "accepted", stored.Status)
}
