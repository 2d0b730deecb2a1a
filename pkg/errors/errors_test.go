package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestBody(t *testing.T) {
	e := BadRequest("invalid JSON body")
	body, ok := e.Body().(map[string]any)
	if !ok || body["error"] != "invalid JSON body" {
		t.Errorf("Body() = %v", e.Body())
	}

	payload := map[string]string{"k": "v"}
	e = WithPayload(http.StatusNotFound, payload, nil)
	if got, ok := e.Body().(map[string]string); !ok || got["k"] != "v" {
		t.Errorf("Body() = %v", e.Body())
	}
	if e.Message != "Not Found" {
		t.Errorf("Message = %q", e.Message)
	}
}

func TestFrom(t *testing.T) {
	inner := NotFound("gone")
	wrapped := fmt.Errorf("lookup: %w", inner)
	if got := From(wrapped); got != inner {
		t.Errorf("From did not unwrap to the AppError")
	}

	plain := errors.New("boom")
	got := From(plain)
	if got.Code != http.StatusInternalServerError || !errors.Is(got, plain) {
		t.Errorf("From(plain) = %+v", got)
	}
	if got.Error() != "Internal Server Error: boom" {
		t.Errorf("Error() = %q", got.Error())
	}
}
