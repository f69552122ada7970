package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServiceError is a response outside the 2xx range, or one whose body could
// not be decoded.
type ServiceError struct {
	Status  int
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

type errorBody struct {
	Error string `json:"error"`
}

func newServiceError(status int, body []byte) *ServiceError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return &ServiceError{Status: status, Message: eb.Error}
	}
	return &ServiceError{Status: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}
}

// Message returns the human readable message carried by err, or "" when it
// carries none.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return "could not reach the recommendation service"
	}
	return err.Error()
}

// IsNotFound reports whether err is a 404 from the catalog.
func IsNotFound(err error) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Status == 404
}
