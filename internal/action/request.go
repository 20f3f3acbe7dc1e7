// Package action extracts and validates the fields of an IFTTT
// run_ssh_command action request.
package action

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Action field names, in validation order.
const (
	FieldHostname = "hostname"
	FieldPort     = "port"
	FieldUsername = "username"
	FieldPassword = "password"
	FieldCommand  = "command"
)

// ErrMalformedBody is returned when the body is not a JSON object.
var ErrMalformedBody = errors.New("request body is not a JSON object")

// ErrMalformedActionFields is returned when actionFields is present but is
// not a JSON object, null included.
var ErrMalformedActionFields = errors.New("actionFields is not a JSON object")

// Request holds the validated parameters of one run_ssh_command call.
type Request struct {
	Hostname string
	Port     int
	Username string
	Password string
	Command  string
}

// Fields is the raw, unvalidated form of a request, one string per action field.
type Fields struct {
	Hostname string
	Port     string
	Username string
	Password string
	Command  string
}

// Parse extracts the action fields from an IFTTT request body and validates
// them. Validation stops at the first failing field.
func Parse(body []byte) (Request, error) {
	if !gjson.ValidBytes(body) {
		return Request{}, ErrMalformedBody
	}
	if !gjson.ParseBytes(body).IsObject() {
		return Request{}, ErrMalformedBody
	}

	var f Fields
	for _, target := range []struct {
		name  string
		value *string
	}{
		{FieldHostname, &f.Hostname},
		{FieldPort, &f.Port},
		{FieldUsername, &f.Username},
		{FieldPassword, &f.Password},
		{FieldCommand, &f.Command},
	} {
		value, err := Field(body, target.name)
		var fieldErr *FieldError
		if err != nil && !errors.As(err, &fieldErr) {
			return Request{}, err
		}
		*target.value = value
	}

	return Validate(f)
}

// Validate checks raw fields in the order hostname, port, username,
// password, command and returns the first error found.
func Validate(f Fields) (Request, error) {
	var req Request

	if f.Hostname == "" {
		return Request{}, &FieldError{Field: FieldHostname}
	}
	req.Hostname = f.Hostname

	if f.Port == "" {
		return Request{}, &FieldError{Field: FieldPort}
	}
	port, err := ParsePort(f.Port)
	if err != nil {
		return Request{}, err
	}
	req.Port = port

	if f.Username == "" {
		return Request{}, &FieldError{Field: FieldUsername}
	}
	req.Username = f.Username

	if f.Password == "" {
		return Request{}, &FieldError{Field: FieldPassword}
	}
	req.Password = f.Password

	if f.Command == "" {
		return Request{}, &FieldError{Field: FieldCommand}
	}
	req.Command = f.Command

	return req, nil
}

// Field returns actionFields[name] from body. A missing field, a JSON null
// and an empty string all yield a *FieldError. Non-string values are
// returned as their JSON text. An actionFields value that is not an object
// yields ErrMalformedActionFields.
func Field(body []byte, name string) (string, error) {
	fields := gjson.GetBytes(body, "actionFields")
	if fields.Exists() && !fields.IsObject() {
		return "", ErrMalformedActionFields
	}
	value := fields.Get(name).String()
	if value == "" {
		return "", &FieldError{Field: name}
	}
	return value, nil
}

// ParsePort parses a base-10 32-bit integer. Surrounding whitespace and a
// leading sign are accepted. The value is not range checked, so zero and
// negative ports pass.
func ParsePort(raw string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, &PortFormatError{Value: raw}
	}
	return int(n), nil
}
