// Package filecfg decodes and validates the YAML/JSON documents kept under
// configs/.
package filecfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// An empty extension decodes as YAML; yaml.v3 also reads JSON documents.
var decoders = map[string]struct {
	name string
	fn   func([]byte, any) error
}{
	"":      {"yaml", yaml.Unmarshal},
	".yaml": {"yaml", yaml.Unmarshal},
	".yml":  {"yaml", yaml.Unmarshal},
	".json": {"json", json.Unmarshal},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Read loads path and decodes it into out. kind names the document in errors.
func Read(path, kind string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", kind)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", kind, err)
	}
	return Decode(raw, filepath.Ext(path), kind, out)
}

// Decode unmarshals data into out using the decoder registered for ext.
func Decode(data []byte, ext, kind string, out any) error {
	d, ok := decoders[strings.ToLower(strings.TrimSpace(ext))]
	if !ok {
		return fmt.Errorf("%s file format %q not recognized (expected YAML or JSON)", kind, ext)
	}
	if err := d.fn(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", d.name, kind, err)
	}
	return nil
}

// Validate checks the validate struct tags of v and flattens failures into
// one readable error. Fields are named by their yaml keys.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := fieldPath(e.Namespace())
		switch e.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("field %s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email address", field))
		case "url":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid url", field))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", field))
		}
	}
	return errors.New(strings.Join(msgs, ", "))
}

// fieldPath drops the root struct name: "Student.email" becomes "email".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
