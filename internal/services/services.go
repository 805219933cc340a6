package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// decodeList reads a list endpoint response: {field: [...]}, {field: {...}}, or a bare array.
func decodeList[T any](resp *api.Response, field string) ([]T, error) {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return []T{}, nil
	}

	if body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	raw, ok := envelope[field]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("%w: missing %q in response", shared.ErrUnexpectedResponse, field)
	}

	raw = bytes.TrimSpace(raw)
	if raw[0] == '{' {
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
		}
		return []T{one}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	return items, nil
}

// decodeOne reads {field: {...}} or a bare object.
func decodeOne[T any](resp *api.Response, field string) (*T, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}

	raw := resp.Body
	if inner, ok := envelope[field]; ok && string(inner) != "null" {
		raw = inner
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUnexpectedResponse, err)
	}
	return &out, nil
}

// attachment is a file on disk to send as a form part.
type attachment struct {
	field string
	path  string
}

// openAttachments opens the files for a multipart form. The returned func closes them.
func openAttachments(form *api.Multipart, files ...attachment) (func(), error) {
	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	for _, a := range files {
		if a.path == "" {
			continue
		}
		f, err := os.Open(a.path)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrInvalidInput, a.field, err)
		}
		opened = append(opened, f)
		form.Files = append(form.Files, api.File{Field: a.field, Filename: filepath.Base(a.path), Content: f})
	}
	return closeAll, nil
}

// setField adds a non-empty form value.
func setField(form *api.Multipart, k, v string) {
	if v == "" {
		return
	}
	if form.Fields == nil {
		form.Fields = map[string]string{}
	}
	form.Fields[k] = v
}
