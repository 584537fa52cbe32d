package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxBodySize caps request bodies at 1 MB. Alert webhooks can batch
// incidents, but anything larger than this is a misconfigured sender.
const MaxBodySize = 1 << 20

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
// Decode failures are translated into messages written for the API client,
// not the Go developer.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}

	// Read one byte past the limit so an oversized body is distinguishable
	// from one that fits exactly.
	raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize+1))
	if err != nil {
		return errors.New("failed to read request body")
	}
	if len(raw) == 0 {
		return errors.New("request body is empty")
	}
	if len(raw) > MaxBodySize {
		return fmt.Errorf("request body exceeds maximum size of %d bytes", MaxBodySize)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return fmt.Errorf("invalid value for field %q: expected %s", typeErr.Field, typeErr.Type)
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return fmt.Errorf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	default:
		return errors.New("invalid JSON in request body")
	}
}
