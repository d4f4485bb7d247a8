package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// MaxBodyBytes caps every decoded request body
const MaxBodyBytes = 1 << 20

var (
	ErrEmptyBody     = errors.New("request body must not be empty")
	ErrBodyTooLarge  = fmt.Errorf("request body must not be larger than %d bytes", MaxBodyBytes)
	ErrTrailingData  = errors.New("request body must only contain a single JSON value")
	ErrMalformedJSON = errors.New("request body contains malformed JSON")
)

// DecodeJSON decodes a single JSON value from the request body into v.
// The error message is safe to return to the client.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var (
			syntaxErr   *json.SyntaxError
			typeErr     *json.UnmarshalTypeError
			maxBytesErr *http.MaxBytesError
		)

		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &maxBytesErr):
			return ErrBodyTooLarge
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return ErrMalformedJSON
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("request body field %q has the wrong type", typeErr.Field)
			}
			return errors.New("request body has the wrong type")
		default:
			return fmt.Errorf("%w: %w", ErrMalformedJSON, err)
		}
	}

	if _, err := dec.Token(); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}

// RequireJSON rejects requests with a body that is not declared as JSON
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 || r.Header.Get("Content-Type") != "" {
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || !strings.EqualFold(mediaType, "application/json") {
				RespondWithError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
