package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Client talks to one gateway instance.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// UploadResult is the gateway's answer to a successful source upload.
type UploadResult struct {
	Key                 string `json:"key"`
	SourceTypeName      string `json:"source_type_name"`
	DerivationGroupName string `json:"derivation_group_name"`
	StartTime           string `json:"start_time"`
	EndTime             string `json:"end_time"`
	ValidAt             string `json:"valid_at"`
	EventCount          int    `json:"event_count"`
}

// UploadSource posts one source document file as a multipart upload.
func (c *Client) UploadSource(path, derivationGroup string) (*UploadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("source_file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if derivationGroup != "" {
		if err := writer.WriteField("derivation_group_name", derivationGroup); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/v1/sources", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// TypesResult is the gateway's answer to a type definitions upload.
type TypesResult struct {
	EventTypes  []string `json:"event_types"`
	SourceTypes []string `json:"source_types"`
}

// UploadTypes posts one type-definitions JSON file.
func (c *Client) UploadTypes(path string) (*TypesResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", c.baseURL+"/api/v1/source-types", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var result TypesResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

type errorResponse struct {
	Error      string `json:"error"`
	Violations []struct {
		Field       string `json:"field"`
		Description string `json:"description"`
	} `json:"violations"`
}

func decodeError(resp *http.Response) error {
	var e errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	if len(e.Violations) > 0 {
		msg := e.Error
		for _, v := range e.Violations {
			msg += fmt.Sprintf("\n  %s: %s", v.Field, v.Description)
		}
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s", e.Error)
}
