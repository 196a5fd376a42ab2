package students

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samvad-hq/students-e2e/pkg/httpclient"
	"github.com/samvad-hq/students-e2e/pkg/resource"
)

type fakeResponse struct {
	status int
	body   []byte
}

func (f fakeResponse) Body() []byte        { return f.body }
func (f fakeResponse) StatusCode() int     { return f.status }
func (f fakeResponse) Header() http.Header { return http.Header{} }
func (f fakeResponse) IsError() bool       { return f.status >= 400 }

func TestIDFromResponse(t *testing.T) {
	cases := []struct {
		body    string
		want    string
		wantErr bool
	}{
		{`{"id":1}`, "1", false},
		{`{"id":1.5}`, "1.5", false},
		{`{"id":9007199254740993}`, "9007199254740993", false},
		{`{"id":"abc-9","name":"Alice"}`, "abc-9", false},
		{`{"name":"Alice"}`, "", true},
		{`{"id":""}`, "", true},
		{`not json`, "", true},
	}
	for _, tc := range cases {
		got, err := IDFromResponse(fakeResponse{status: 201, body: []byte(tc.body)})
		if tc.wantErr {
			if err == nil {
				t.Fatalf("IDFromResponse(%s) expected error, got %q", tc.body, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("IDFromResponse(%s) = %q, %v; want %q", tc.body, got, err, tc.want)
		}
	}
}

func TestDecodeStudents(t *testing.T) {
	resp := fakeResponse{status: 200, body: []byte(`[{"id":1,"name":"A","email":"a@x.io","age":20},{"id":2,"name":"B","email":"b@x.io","age":21}]`)}
	list, err := DecodeStudents(resp)
	if err != nil {
		t.Fatalf("DecodeStudents: %v", err)
	}
	if len(list) != 2 || list[1].Name != "B" || list[0].Age != 20 {
		t.Fatalf("unexpected list %#v", list)
	}

	if _, err := DecodeStudent(fakeResponse{body: []byte(`[`)}); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPatchStudentNilPatchRejected(t *testing.T) {
	c, err := NewHTTP(httpclient.NewRestyClient(time.Second), resource.StaticToken("t"), "")
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	if _, err := c.PatchStudent(context.Background(), "1", nil); !errors.Is(err, resource.ErrNilBody) {
		t.Fatalf("err = %v, want ErrNilBody", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	type seenReq struct {
		method, path, auth string
		body               map[string]any
	}
	var seen []seenReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		seen = append(seen, seenReq{r.Method, r.URL.Path, r.Header.Get("Authorization"), body})
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":5}`))
		default:
			_, _ = w.Write([]byte(`{"id":5,"name":"Alice","email":"alice@example.com","age":30}`))
		}
	}))
	defer srv.Close()

	c, err := NewHTTP(httpclient.NewRestyClient(2*time.Second), resource.StaticToken("abc"), srv.URL)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	ctx := context.Background()

	resp, err := c.CreateStudent(ctx, Student{Name: "Alice", Email: "alice@example.com", Age: 30})
	if err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}
	id, err := IDFromResponse(resp)
	if err != nil || id != "5" {
		t.Fatalf("id = %q, %v", id, err)
	}
	if _, err := c.ReplaceStudent(ctx, id, Student{Name: "Alicia", Email: "alice@example.com", Age: 31}); err != nil {
		t.Fatalf("ReplaceStudent: %v", err)
	}
	if _, err := c.PatchStudent(ctx, id, Patch{"age": 32}); err != nil {
		t.Fatalf("PatchStudent: %v", err)
	}
	resp, err = c.GetStudent(ctx, id)
	if err != nil {
		t.Fatalf("GetStudent: %v", err)
	}
	s, err := DecodeStudent(resp)
	if err != nil || s.Email != "alice@example.com" {
		t.Fatalf("DecodeStudent = %#v, %v", s, err)
	}

	if len(seen) != 4 {
		t.Fatalf("expected 4 requests, got %d", len(seen))
	}
	if seen[0].method != http.MethodPost || seen[0].path != "/students" || seen[0].body["name"] != "Alice" {
		t.Fatalf("create request %#v", seen[0])
	}
	if _, ok := seen[0].body["id"]; ok {
		t.Fatalf("zero id must be omitted from create body")
	}
	if seen[1].method != http.MethodPut || seen[1].path != "/students/5" || seen[1].body["name"] != "Alicia" {
		t.Fatalf("replace request %#v", seen[1])
	}
	if seen[2].method != http.MethodPatch || seen[2].body["age"] != float64(32) {
		t.Fatalf("patch request %#v", seen[2])
	}
	for _, r := range seen {
		if r.auth != "Bearer abc" {
			t.Fatalf("missing bearer on %s %s", r.method, r.path)
		}
	}
}
