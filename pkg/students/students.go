package students

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samvad-hq/students-e2e/pkg/httpclient"
	"github.com/samvad-hq/students-e2e/pkg/resource"
	"github.com/tidwall/gjson"
)

// Student is the payload exchanged with the students endpoints.
type Student struct {
	ID    int    `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string `json:"name" yaml:"name" validate:"required"`
	Email string `json:"email" yaml:"email" validate:"required,email"`
	Age   int    `json:"age" yaml:"age" validate:"required,gt=0"`
}

// Patch is a partial update body for PATCH requests.
type Patch map[string]any

// Client exposes the students operations on top of a resource.Client.
type Client struct {
	res *resource.Client
}

// New wraps an existing resource client.
func New(res *resource.Client) (*Client, error) {
	if res == nil {
		return nil, errors.New("resource client must not be nil")
	}
	return &Client{res: res}, nil
}

// NewHTTP builds a students client over exec, pointed at baseURL.
func NewHTTP(exec resource.Executor, tokens resource.TokenSource, baseURL string) (*Client, error) {
	res, err := resource.New(exec, tokens, resource.WithBaseURL(baseURL), resource.WithResource(resource.DefaultResource))
	if err != nil {
		return nil, err
	}
	return &Client{res: res}, nil
}

// Resource returns the underlying generic client.
func (c *Client) Resource() *resource.Client { return c.res }

func (c *Client) CreateStudent(ctx context.Context, s Student) (httpclient.Response, error) {
	return c.res.Create(ctx, s)
}

func (c *Client) GetStudents(ctx context.Context) (httpclient.Response, error) {
	return c.res.List(ctx)
}

func (c *Client) GetStudent(ctx context.Context, id string) (httpclient.Response, error) {
	return c.res.Get(ctx, id)
}

// ReplaceStudent sends the full record with PUT.
func (c *Client) ReplaceStudent(ctx context.Context, id string, s Student) (httpclient.Response, error) {
	return c.res.Replace(ctx, id, s)
}

// PatchStudent sends a partial record with PATCH.
func (c *Client) PatchStudent(ctx context.Context, id string, p Patch) (httpclient.Response, error) {
	return c.res.Update(ctx, id, p)
}

func (c *Client) DeleteStudent(ctx context.Context, id string) (httpclient.Response, error) {
	return c.res.Delete(ctx, id)
}

// IDFromResponse extracts the "id" field of a create response. Numeric and
// string ids are both accepted.
func IDFromResponse(resp httpclient.Response) (string, error) {
	if resp == nil {
		return "", errors.New("nil response")
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("response body is not json: %s", snippet(body))
	}
	res := gjson.GetBytes(body, "id")
	switch res.Type {
	case gjson.Number:
		return res.Raw, nil
	case gjson.String:
		if id := strings.TrimSpace(res.String()); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("response has no id field: %s", snippet(body))
}

// DecodeStudent decodes a single student body.
func DecodeStudent(resp httpclient.Response) (Student, error) {
	var s Student
	if resp == nil {
		return s, errors.New("nil response")
	}
	if err := json.Unmarshal(resp.Body(), &s); err != nil {
		return s, fmt.Errorf("decode student: %w", err)
	}
	return s, nil
}

// DecodeStudents decodes a list body.
func DecodeStudents(resp httpclient.Response) ([]Student, error) {
	if resp == nil {
		return nil, errors.New("nil response")
	}
	var out []Student
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode students: %w", err)
	}
	return out, nil
}

func snippet(body []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
