package model

import (
	"bytes"
	stdjson "encoding/json"
	"strings"

	"codeberg.org/mutker/hdsim/internal/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes v in wire form.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.New().Wrap(ErrEncode, err)
	}
	return data, nil
}

// EncodePretty serializes v with two-space indentation for display.
func EncodePretty(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", errors.New().Wrap(ErrEncode, err)
	}
	return string(data), nil
}

// Decode parses wire-form data into v.
func Decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.New().Wrap(ErrDecode, err)
	}
	return nil
}

// Prettify re-indents a JSON document without decoding it, so key order
// and number literals are kept as sent. Anything that is not valid JSON is
// returned unchanged, so opaque service replies still display.
func Prettify(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return raw
	}

	var out bytes.Buffer
	if err := stdjson.Indent(&out, []byte(trimmed), "", "  "); err != nil {
		return raw
	}
	return out.String()
}
