package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/sma-admission-api/internal/dto"
	"github.com/noah-isme/sma-admission-api/internal/models"
)

// locSeparator joins the segments of a validation error's field path.
const locSeparator = ","

// APIError is a failure body returned by the admission endpoints, flattened
// into a single display string. Field-level validation errors are joined one
// per line as "<loc path>: <msg>".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the public admission endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL. A nil httpClient falls
// back to a default with a 15s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// VerifyAdmission checks an admission letter against the child's name.
func (c *Client) VerifyAdmission(ctx context.Context, req dto.VerifyAdmissionRequest) (*dto.VerifiedAdmission, error) {
	var out dto.VerifiedAdmission
	if err := c.do(ctx, http.MethodPost, "/admission/verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterAdmission submits the full merged registration payload.
func (c *Client) RegisterAdmission(ctx context.Context, req dto.RegisterAdmissionRequest) (*models.StudentAdmission, error) {
	var out models.StudentAdmission
	if err := c.do(ctx, http.MethodPost, "/admission/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AdmissionStatus reads the current status for an admission number.
func (c *Client) AdmissionStatus(ctx context.Context, admissionNumber string) (*dto.AdmissionStatusResponse, error) {
	var out dto.AdmissionStatusResponse
	path := "/admission/status/" + url.PathEscape(admissionNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("network error occurred: %w", err)
	}
	defer res.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("network error occurred: %w", err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		return parseAPIError(res.StatusCode, payload)
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// parseAPIError accepts both legacy error shapes: {"detail": "..."} and
// {"detail": [{"loc": [...], "msg": "..."}]}.
func parseAPIError(status int, body []byte) error {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return &APIError{StatusCode: status, Message: "network error occurred"}
	}

	var message string
	if err := json.Unmarshal(envelope.Detail, &message); err == nil {
		return &APIError{StatusCode: status, Message: message}
	}

	var fields []dto.FieldError
	if err := json.Unmarshal(envelope.Detail, &fields); err == nil {
		lines := make([]string, 0, len(fields))
		for _, f := range fields {
			lines = append(lines, joinLoc(f.Loc)+": "+f.Msg)
		}
		return &APIError{StatusCode: status, Message: strings.Join(lines, "\n")}
	}

	return &APIError{StatusCode: status, Message: "network error occurred"}
}

func joinLoc(loc []interface{}) string {
	parts := make([]string, 0, len(loc))
	for _, segment := range loc {
		switch v := segment.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, strconv.FormatInt(int64(v), 10))
		case int:
			parts = append(parts, strconv.Itoa(v))
		default:
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, locSeparator)
}
