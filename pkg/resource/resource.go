// Package resource builds and issues CRUD requests for one named REST
// collection. Every call assembles a fresh Descriptor carrying the bearer
// token current at call time and hands it to an Executor; the executor's
// response and error come back unchanged.
package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/samvad-hq/students-e2e/pkg/httpclient"
)

const (
	DefaultBaseURL  = "http://localhost:3000"
	DefaultResource = "students"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

var (
	// ErrEmptyID is returned when an id-scoped operation receives a blank id.
	ErrEmptyID = errors.New("resource id is required")
	// ErrNilBody is returned when a create/replace/update receives no payload.
	ErrNilBody = errors.New("request body is required")
)

// Executor runs a built request. httpclient.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req httpclient.Request) (httpclient.Response, error)
}

// Descriptor is the fully assembled description of one HTTP call.
type Descriptor struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// Request converts the descriptor into the executor's request type.
func (d Descriptor) Request() httpclient.Request {
	return httpclient.Request{
		Method:  d.Method,
		URL:     d.URL,
		Headers: d.Headers,
		Body:    d.Body,
	}
}

// Client issues CRUD requests against a single named collection.
type Client struct {
	baseURL  string
	resource string
	tokens   TokenSource
	exec     Executor
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithResource overrides DefaultResource.
func WithResource(name string) Option {
	return func(c *Client) {
		if name = strings.Trim(strings.TrimSpace(name), "/"); name != "" {
			c.resource = name
		}
	}
}

// New builds a Client. A nil token source yields an empty bearer token.
func New(exec Executor, tokens TokenSource, opts ...Option) (*Client, error) {
	if exec == nil {
		return nil, fmt.Errorf("executor must not be nil")
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL:  DefaultBaseURL,
		resource: DefaultResource,
		tokens:   tokens,
		exec:     exec,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CollectionURL returns base/resource.
func (c *Client) CollectionURL() string {
	return c.baseURL + "/" + c.resource
}

// ItemURL returns base/resource/{id} with id path-escaped.
func (c *Client) ItemURL(id string) string {
	return c.CollectionURL() + "/" + url.PathEscape(strings.TrimSpace(id))
}

// Build assembles the descriptor for op without sending it.
func (c *Client) Build(op Op, id string, body any) (Descriptor, error) {
	if !op.valid() {
		return Descriptor{}, fmt.Errorf("unknown operation %d", op)
	}

	target := c.CollectionURL()
	if op.idScoped() {
		id = strings.TrimSpace(id)
		if id == "" {
			return Descriptor{}, ErrEmptyID
		}
		target = c.ItemURL(id)
	}

	d := Descriptor{
		Method: op.Method(),
		URL:    target,
		Headers: map[string]string{
			headerAuthorization: "Bearer " + c.tokens.Token(),
			headerContentType:   contentTypeJSON,
		},
	}
	if op.hasBody() {
		if isNil(body) {
			return Descriptor{}, ErrNilBody
		}
		d.Body = body
	}
	return d, nil
}

// isNil reports whether v is nil or a nil map, pointer, slice or interface
// wrapped in any.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Do builds and executes op. Executor results are returned untouched.
func (c *Client) Do(ctx context.Context, op Op, id string, body any) (httpclient.Response, error) {
	d, err := c.Build(op, id, body)
	if err != nil {
		return nil, err
	}
	return c.exec.Execute(ctx, d.Request())
}

// Create issues POST base/resource with data as the JSON body.
func (c *Client) Create(ctx context.Context, data any) (httpclient.Response, error) {
	return c.Do(ctx, OpCreate, "", data)
}

// List issues GET base/resource.
func (c *Client) List(ctx context.Context) (httpclient.Response, error) {
	return c.Do(ctx, OpList, "", nil)
}

// Get issues GET base/resource/{id}.
func (c *Client) Get(ctx context.Context, id string) (httpclient.Response, error) {
	return c.Do(ctx, OpGet, id, nil)
}

// Replace issues PUT base/resource/{id}.
func (c *Client) Replace(ctx context.Context, id string, data any) (httpclient.Response, error) {
	return c.Do(ctx, OpReplace, id, data)
}

// Update issues PATCH base/resource/{id}.
func (c *Client) Update(ctx context.Context, id string, data any) (httpclient.Response, error) {
	return c.Do(ctx, OpUpdate, id, data)
}

// Delete issues DELETE base/resource/{id}.
func (c *Client) Delete(ctx context.Context, id string) (httpclient.Response, error) {
	return c.Do(ctx, OpDelete, id, nil)
}

// Op enumerates the supported operations.
type Op int

const (
	OpCreate Op = iota
	OpList
	OpGet
	OpReplace
	OpUpdate
	OpDelete
)

var opSpecs = [...]struct {
	name     string
	method   string
	idScoped bool
	hasBody  bool
}{
	OpCreate:  {"create", http.MethodPost, false, true},
	OpList:    {"list", http.MethodGet, false, false},
	OpGet:     {"get", http.MethodGet, true, false},
	OpReplace: {"replace", http.MethodPut, true, true},
	OpUpdate:  {"update", http.MethodPatch, true, true},
	OpDelete:  {"delete", http.MethodDelete, true, false},
}

func (o Op) valid() bool { return o >= 0 && int(o) < len(opSpecs) }

func (o Op) idScoped() bool { return o.valid() && opSpecs[o].idScoped }

func (o Op) hasBody() bool { return o.valid() && opSpecs[o].hasBody }

// Method returns the HTTP verb for the operation.
func (o Op) Method() string {
	if !o.valid() {
		return ""
	}
	return opSpecs[o].method
}

func (o Op) String() string {
	if !o.valid() {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opSpecs[o].name
}
