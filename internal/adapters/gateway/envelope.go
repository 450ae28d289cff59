package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

const (
	codeOK      = 200
	codeCreated = 201
)

// ErrNoData marks a successful response whose data could not be decoded
// into the requested shape.
var ErrNoData = errors.New("response carried no usable data")

// Envelope is the server's {code, message, data} response wrapper. Code is
// always 200 on success.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Decode unmarshals Data into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return &domain.Error{Kind: domain.ErrBusiness, Code: e.Code, Message: "empty response data", Err: ErrNoData}
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return &domain.Error{Kind: domain.ErrBusiness, Code: e.Code, Message: "unexpected response data", Err: fmt.Errorf("%w: %v", ErrNoData, err)}
	}
	return nil
}

// decodeEnvelope normalizes a 2xx body. A body that is not an object, or an
// object without a code, is treated as the data itself.
func decodeEnvelope(status int, body []byte) (*Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &Envelope{Code: codeOK, Message: "ok"}, nil
	}
	if body[0] != '{' {
		return &Envelope{Code: codeOK, Message: "ok", Data: json.RawMessage(body)}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.Error{Kind: domain.ErrBusiness, Status: status, Message: "malformed response body", Err: err}
	}

	env := &Envelope{Code: codeOK, Message: "ok"}
	if rawCode, ok := raw["code"]; ok {
		code, err := parseCode(rawCode)
		if err != nil {
			return nil, &domain.Error{Kind: domain.ErrBusiness, Status: status, Message: "malformed response code", Err: err}
		}
		if code != 0 {
			env.Code = code
		}
	}
	if rawMsg, ok := raw["message"]; ok {
		var msg string
		if json.Unmarshal(rawMsg, &msg) == nil && msg != "" {
			env.Message = msg
		}
	}

	if env.Code != codeOK && env.Code != codeCreated {
		msg := env.Message
		if msg == "ok" {
			msg = "request failed"
		}
		return nil, domain.NewBusinessError(status, env.Code, msg)
	}
	env.Code = codeOK

	if data, ok := raw["data"]; ok && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		env.Data = data
	} else {
		env.Data = json.RawMessage(body)
	}
	return env, nil
}

// parseCode accepts numeric codes and numeric strings.
func parseCode(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("code is neither number nor string: %s", raw)
	}
	return strconv.Atoi(s)
}

// errorMessage extracts message or error from a non-2xx body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("server error: %d", status)
}
