package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"clevermock-web/internal/domain"
)

// PrepareStartResponse is returned when a CV has been accepted for analysis.
type PrepareStartResponse struct {
	ConversationID   string `json:"conversation_id"`
	Status           string `json:"status"`
	InterviewDetails string `json:"interview_details"`
}

// RefineResponse carries the updated interview plan.
type RefineResponse struct {
	InterviewDetails string `json:"interview_details"`
}

// AcceptResponse confirms the plan was accepted.
type AcceptResponse struct {
	Status string `json:"status"`
}

// LiveKitToken grants access to one voice room on the real-time media service.
type LiveKitToken struct {
	Token     string `json:"token"`
	Identity  string `json:"identity"`
	Room      string `json:"room"`
	ServerURL string `json:"serverUrl"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	IsActive bool   `json:"is_active"`
}

type SignupResponse struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name,omitempty"`
	ID        string `json:"id"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// CVFile is the uploaded resume forwarded to the backend.
type CVFile struct {
	Name    string
	Content io.Reader
}

// StartPreparation uploads the CV together with the target role and focus
// areas, and returns the new conversation with its first plan.
func (c *Client) StartPreparation(ctx context.Context, cv CVFile, position, instruction string) (*PrepareStartResponse, error) {
	const fallback = "Failed to start preparation"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", cv.Name)
	if err != nil {
		return nil, newNetworkError(err, fallback)
	}
	if _, err := io.Copy(part, cv.Content); err != nil {
		return nil, newNetworkError(fmt.Errorf("read cv: %w", err), fallback)
	}
	if err := mw.WriteField("position", position); err != nil {
		return nil, newNetworkError(err, fallback)
	}
	if err := mw.WriteField("instruction", instruction); err != nil {
		return nil, newNetworkError(err, fallback)
	}
	if err := mw.Close(); err != nil {
		return nil, newNetworkError(err, fallback)
	}

	var out PrepareStartResponse
	err = c.call(ctx, http.MethodPost, "/api/v1/prepare/start", buf.Bytes(), mw.FormDataContentType(), true, fallback, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RefineDetails sends user feedback on the current plan.
func (c *Client) RefineDetails(ctx context.Context, conversationID, message string) (*RefineResponse, error) {
	const fallback = "Failed to refine details"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("message", message); err != nil {
		return nil, newNetworkError(err, fallback)
	}
	if err := mw.Close(); err != nil {
		return nil, newNetworkError(err, fallback)
	}

	var out RefineResponse
	path := "/api/v1/prepare/" + url.PathEscape(conversationID) + "/refine"
	if err := c.call(ctx, http.MethodPost, path, buf.Bytes(), mw.FormDataContentType(), true, fallback, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptDetails locks in the plan so the interview can start.
func (c *Client) AcceptDetails(ctx context.Context, conversationID string) (*AcceptResponse, error) {
	var out AcceptResponse
	path := "/api/v1/prepare/" + url.PathEscape(conversationID) + "/accept"
	if err := c.call(ctx, http.MethodPost, path, nil, "", true, "Failed to accept details", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLiveKitToken fetches the room credential for the conversation.
func (c *Client) GetLiveKitToken(ctx context.Context, room string) (*LiveKitToken, error) {
	var out LiveKitToken
	path := "/api/v1/livekit/token?room=" + url.QueryEscape(room)
	if err := c.call(ctx, http.MethodGet, path, nil, "", true, "Failed to fetch interview token", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Signup registers a new account. It never sends a bearer token.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	const fallback = "Failed to sign up"

	req.IsActive = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, newNetworkError(err, fallback)
	}

	var out SignupResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/signup", body, "application/json", false, fallback, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates and persists the returned token pair.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	const fallback = "Failed to log in"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, newNetworkError(err, fallback)
	}

	var out LoginResponse
	if err := c.call(ctx, http.MethodPost, "/api/v1/auth/login", body, "application/json", false, fallback, &out); err != nil {
		return nil, err
	}

	if err := c.tokens.Save(ctx, domain.Tokens{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		return nil, fmt.Errorf("failed to save tokens: %w", err)
	}
	return &out, nil
}

// Logout forgets the session locally. The backend keeps no logout endpoint.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// call performs a JSON round trip and normalizes every failure into *APIError.
func (c *Client) call(ctx context.Context, method, path string, body []byte, contentType string, auth bool, fallback string, out any) error {
	opts := RequestOptions{
		Method: method,
		Header: http.Header{},
		Body:   body,
	}
	opts.Header.Set("Accept", "application/json")
	if contentType != "" {
		opts.Header.Set("Content-Type", contentType)
	}

	var (
		resp *http.Response
		err  error
	)
	if auth {
		resp, err = c.AuthenticatedFetch(ctx, c.endpoint(path), opts, true)
	} else {
		resp, err = c.do(ctx, c.endpoint(path), opts, "")
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return newNetworkError(err, fallback)
	}
	defer drain(resp)

	if !isSuccess(resp.StatusCode) {
		return newResponseError(resp, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fallback,
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}
