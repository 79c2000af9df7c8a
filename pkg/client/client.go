// Package client is the console-side core of the ambulance service: a typed
// gateway over the REST API, credential/session management, and a live feed
// that mirrors operational data via the push channel with a polling fallback.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the ceiling on any single gateway call. A call that
// exceeds it surfaces as a NetworkError.
const DefaultTimeout = 30 * time.Second

// envelope is the standard API response wrapper.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Client is the remote data gateway. Every call injects the bearer token
// from the credential store and resolves to a typed value or one of the
// gateway error types. A 401 clears all stored credentials as a side effect.
// The gateway never retries; callers decide.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, primarily for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a gateway for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, creds *Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		creds:   creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials exposes the credential store the gateway injects tokens from.
func (c *Client) Credentials() *Credentials { return c.creds }

// do executes one API call. body is JSON-encoded when non-nil; on success
// the envelope's data is decoded into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if decodeErr := json.NewDecoder(resp.Body).Decode(&env); decodeErr != nil && resp.StatusCode < 400 {
		return &NetworkError{Err: fmt.Errorf("decode response: %w", decodeErr)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Forced logout: stored credentials are cleared no matter which
		// call triggered the 401.
		c.creds.Clear()
		return &AuthError{Message: env.Error}
	case resp.StatusCode >= 500:
		return &ServerError{Status: resp.StatusCode, Message: env.Error}
	case resp.StatusCode >= 400:
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &ValidationError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &NetworkError{Err: fmt.Errorf("decode response data: %w", err)}
		}
	}
	return nil
}

// --- Auth ---

// LoginRequest is the login form.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and returns the issued tokens and identity. It does
// not persist anything; Session.Login owns credential storage.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", LoginRequest{Username: username, Password: password}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterRequest is the registration form.
type RegisterRequest struct {
	Username    string `json:"username"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

// Register creates a new USER account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the server-side refresh tokens. Credential clearing is the
// session's job and happens regardless of this call's outcome.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/refresh-token",
		map[string]string{"refreshToken": refreshToken}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// --- Ambulances ---

// Ambulances fetches the whole fleet.
func (c *Client) Ambulances(ctx context.Context) ([]Ambulance, error) {
	var out []Ambulance
	if err := c.do(ctx, http.MethodGet, "/api/ambulances", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableAmbulances fetches ambulances ready for dispatch.
func (c *Client) AvailableAmbulances(ctx context.Context) ([]Ambulance, error) {
	var out []Ambulance
	if err := c.do(ctx, http.MethodGet, "/api/ambulances/available", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ambulance fetches one ambulance by id.
func (c *Client) Ambulance(ctx context.Context, id string) (*Ambulance, error) {
	var out Ambulance
	if err := c.do(ctx, http.MethodGet, "/api/ambulances/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AmbulanceForm carries ambulance create/update fields.
type AmbulanceForm struct {
	LicensePlate    string `json:"licensePlate,omitempty"`
	DriverName      string `json:"driverName,omitempty"`
	CurrentLocation string `json:"currentLocation,omitempty"`
	Status          string `json:"status,omitempty"`
}

// CreateAmbulance adds an ambulance to the fleet.
func (c *Client) CreateAmbulance(ctx context.Context, form AmbulanceForm) (*Ambulance, error) {
	var out Ambulance
	if err := c.do(ctx, http.MethodPost, "/api/ambulances", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAmbulance edits ambulance details.
func (c *Client) UpdateAmbulance(ctx context.Context, id string, form AmbulanceForm) (*Ambulance, error) {
	var out Ambulance
	if err := c.do(ctx, http.MethodPut, "/api/ambulances/"+url.PathEscape(id), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAmbulanceStatus changes only the status of an ambulance.
func (c *Client) UpdateAmbulanceStatus(ctx context.Context, id, status string) (*Ambulance, error) {
	var out Ambulance
	err := c.do(ctx, http.MethodPatch, "/api/ambulances/"+url.PathEscape(id)+"/status",
		map[string]string{"status": status}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAmbulanceAvailable runs the dedicated mark-available action.
func (c *Client) MarkAmbulanceAvailable(ctx context.Context, id string) (*Ambulance, error) {
	var out Ambulance
	if err := c.do(ctx, http.MethodPatch, "/api/ambulances/"+url.PathEscape(id)+"/available", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAmbulance removes an ambulance from the fleet.
func (c *Client) DeleteAmbulance(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/ambulances/"+url.PathEscape(id), nil, nil)
}

// --- Requests ---

// RequestForm is the public emergency intake form.
type RequestForm struct {
	UserName             string `json:"userName,omitempty"`
	UserContact          string `json:"userContact"`
	PatientName          string `json:"patientName"`
	Location             string `json:"location"`
	EmergencyDescription string `json:"emergencyDescription"`
	MedicalNotes         string `json:"medicalNotes,omitempty"`
}

// CreateRequest submits an emergency transport request.
func (c *Client) CreateRequest(ctx context.Context, form RequestForm) (*EmergencyRequest, error) {
	var out EmergencyRequest
	if err := c.do(ctx, http.MethodPost, "/api/requests", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Requests fetches one server-side page of requests. page is 0-based; sort
// accepts requestTime/status with a minus prefix for descending.
func (c *Client) Requests(ctx context.Context, page, size int, sort string) (*RequestPage, error) {
	query := url.Values{}
	query.Set("page", fmt.Sprint(page))
	query.Set("size", fmt.Sprint(size))
	if sort != "" {
		query.Set("sort", sort)
	}

	var out RequestPage
	if err := c.do(ctx, http.MethodGet, "/api/requests?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Request fetches one request, history included.
func (c *Client) Request(ctx context.Context, id string) (*EmergencyRequest, error) {
	var out EmergencyRequest
	if err := c.do(ctx, http.MethodGet, "/api/requests/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestStatusHistory fetches the ordered status log of a request.
func (c *Client) RequestStatusHistory(ctx context.Context, id string) ([]StatusHistoryEntry, error) {
	var out []StatusHistoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/requests/"+url.PathEscape(id)+"/status-history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyRequests fetches the authenticated user's own requests.
func (c *Client) MyRequests(ctx context.Context) ([]EmergencyRequest, error) {
	var out []EmergencyRequest
	if err := c.do(ctx, http.MethodGet, "/api/requests/my", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestsByUser fetches requests submitted by the given user.
func (c *Client) RequestsByUser(ctx context.Context, userID string) ([]EmergencyRequest, error) {
	var out []EmergencyRequest
	if err := c.do(ctx, http.MethodGet, "/api/requests/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RequestsByPatient fetches requests for the given patient name.
func (c *Client) RequestsByPatient(ctx context.Context, patientName string) ([]EmergencyRequest, error) {
	var out []EmergencyRequest
	if err := c.do(ctx, http.MethodGet, "/api/requests/patient/"+url.PathEscape(patientName), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRequestStatus submits a status transition for a request.
func (c *Client) UpdateRequestStatus(ctx context.Context, id, status, notes string) (*EmergencyRequest, error) {
	var out EmergencyRequest
	err := c.do(ctx, http.MethodPatch, "/api/requests/"+url.PathEscape(id)+"/status",
		map[string]string{"status": status, "notes": notes}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AssignAmbulance explicitly attaches an ambulance to a request.
func (c *Client) AssignAmbulance(ctx context.Context, requestID, ambulanceID string) (*EmergencyRequest, error) {
	var out EmergencyRequest
	err := c.do(ctx, http.MethodPatch, "/api/requests/"+url.PathEscape(requestID)+"/assign",
		map[string]string{"ambulanceId": ambulanceID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DispatchAmbulance runs the dispatch action for a request.
func (c *Client) DispatchAmbulance(ctx context.Context, requestID string) (*EmergencyRequest, error) {
	var out EmergencyRequest
	if err := c.do(ctx, http.MethodPost, "/api/dispatch/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Patients ---

// PatientForm carries patient create/update fields.
type PatientForm struct {
	Name         string `json:"name,omitempty"`
	Contact      string `json:"contact,omitempty"`
	MedicalNotes string `json:"medicalNotes,omitempty"`
}

// Patients fetches patient records, archived ones excluded.
func (c *Client) Patients(ctx context.Context) ([]Patient, error) {
	var out []Patient
	if err := c.do(ctx, http.MethodGet, "/api/patients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePatient creates a patient record.
func (c *Client) CreatePatient(ctx context.Context, form PatientForm) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodPost, "/api/patients", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePatient edits a patient record.
func (c *Client) UpdatePatient(ctx context.Context, id string, form PatientForm) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodPut, "/api/patients/"+url.PathEscape(id), form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ArchivePatient soft-deletes a patient record.
func (c *Client) ArchivePatient(ctx context.Context, id string) (*Patient, error) {
	var out Patient
	if err := c.do(ctx, http.MethodPatch, "/api/patients/"+url.PathEscape(id)+"/archive", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePatient permanently removes a patient record.
func (c *Client) DeletePatient(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/patients/"+url.PathEscape(id), nil, nil)
}

// --- Service history ---

// ServiceHistory fetches all service episode records.
func (c *Client) ServiceHistory(ctx context.Context) ([]ServiceRecord, error) {
	var out []ServiceRecord
	if err := c.do(ctx, http.MethodGet, "/api/service-history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceHistoryByStatus fetches service records with the given status.
func (c *Client) ServiceHistoryByStatus(ctx context.Context, status string) ([]ServiceRecord, error) {
	var out []ServiceRecord
	if err := c.do(ctx, http.MethodGet, "/api/service-history/status/"+url.PathEscape(status), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ServiceHistoryByDateRange fetches service records created inside
// [start, end], bounds formatted RFC3339 or as plain dates.
func (c *Client) ServiceHistoryByDateRange(ctx context.Context, start, end string) ([]ServiceRecord, error) {
	query := url.Values{}
	query.Set("start", start)
	query.Set("end", end)

	var out []ServiceRecord
	if err := c.do(ctx, http.MethodGet, "/api/service-history/date-range?"+query.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateServiceStatus changes the status of a service episode.
func (c *Client) UpdateServiceStatus(ctx context.Context, id, status, notes string) (*ServiceRecord, error) {
	var out ServiceRecord
	err := c.do(ctx, http.MethodPatch, "/api/service-history/"+url.PathEscape(id)+"/status",
		map[string]string{"status": status, "notes": notes}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkServiceCompleted closes a service episode as COMPLETED.
func (c *Client) MarkServiceCompleted(ctx context.Context, id string) (*ServiceRecord, error) {
	var out ServiceRecord
	if err := c.do(ctx, http.MethodPatch, "/api/service-history/"+url.PathEscape(id)+"/complete", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Users ---

// Me fetches the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword updates the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPut, "/api/users/me/password",
		map[string]string{"currentPassword": current, "newPassword": next}, nil)
}

// Users fetches all users (admin).
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
