package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	gallery "github.com/bitmark-inc/client-gallery"
)

const clientTimeout = 30 * time.Second

type Client struct {
	client      *http.Client
	apiEndpoint string
	token       string
}

// APIError is returned when the API responds with a non 200 status
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Detail     string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gallery api error %d: %s", e.StatusCode, e.Message)
}

// AuthResult is the response of register and login
type AuthResult struct {
	Token string             `json:"token"`
	User  gallery.PublicUser `json:"user"`
}

// File is an image uploaded as part of a multipart request
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// New create a gallery api client
func New(apiEndpoint string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{
			Timeout: clientTimeout,
		}
	}

	return &Client{
		client:      client,
		apiEndpoint: strings.TrimRight(apiEndpoint, "/"),
	}
}

// WithToken returns a copy of the client that authenticates with token
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

func (c *Client) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	var result AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &result)
	return result, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var result AuthResult
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &result)
	return result, err
}

// CreateGallery uploads files into a new gallery
func (c *Client) CreateGallery(ctx context.Context, title string, date time.Time, files []File) (gallery.Gallery, error) {
	var g gallery.Gallery
	err := c.doMultipart(ctx, "/api/galleries", map[string]string{
		"title": title,
		"date":  date.Format(time.RFC3339),
	}, files, &g)
	return g, err
}

func (c *Client) ListGalleries(ctx context.Context) ([]gallery.Gallery, error) {
	var galleries []gallery.Gallery
	err := c.doJSON(ctx, http.MethodGet, "/api/galleries", nil, &galleries)
	return galleries, err
}

func (c *Client) GetGallery(ctx context.Context, id string) (gallery.Gallery, error) {
	var g gallery.Gallery
	err := c.doJSON(ctx, http.MethodGet, "/api/galleries/"+id, nil, &g)
	return g, err
}

func (c *Client) AddImages(ctx context.Context, id string, files []File) (gallery.Gallery, error) {
	var g gallery.Gallery
	err := c.doMultipart(ctx, "/api/galleries/"+id+"/images", nil, files, &g)
	return g, err
}

func (c *Client) UpdateImageDescription(ctx context.Context, id, imageID, description string) (gallery.Gallery, error) {
	var g gallery.Gallery
	err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/galleries/%s/images/%s", id, imageID), map[string]string{
		"description": description,
	}, &g)
	return g, err
}

func (c *Client) ToggleLike(ctx context.Context, id, imageID string) (gallery.Gallery, error) {
	var g gallery.Gallery
	err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/galleries/%s/images/%s/like", id, imageID), nil, &g)
	return g, err
}

// SetCover replaces the gallery cover. A nil coverImage clears it.
func (c *Client) SetCover(ctx context.Context, id string, coverImage *string) (gallery.Gallery, error) {
	var g gallery.Gallery
	err := c.doJSON(ctx, http.MethodPut, "/api/galleries/"+id+"/cover", map[string]*string{
		"coverImage": coverImage,
	}, &g)
	return g, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return err
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiEndpoint+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	return c.do(req, result)
}

func (c *Client) doMultipart(ctx context.Context, path string, fields map[string]string, files []File, result any) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, escapeQuotes(f.Name)))
		h.Set("Content-Type", f.ContentType)

		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return err
		}
	}

	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiEndpoint+path, &body)
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", w.FormDataContentType())

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
