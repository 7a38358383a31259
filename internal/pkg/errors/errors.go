// Copyright (c) 2025 Lazycat Apps
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines application errors carrying an HTTP status code.
package errors

import (
	"fmt"
	"net/http"
)

// AppError is an error with an associated HTTP status code and a
// client-facing message. The wrapped error is kept for logging.
type AppError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapInvalidInput wraps an error as a 400 Bad Request.
func WrapInvalidInput(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusBadRequest, Message: message, Err: err}
}

// WrapImageNotFound wraps an error as a 404 for a missing image record.
func WrapImageNotFound(err error) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: "Image not found", Err: err}
}

// WrapRunNotFound wraps an error as a 404 for a missing sync run.
func WrapRunNotFound(err error) *AppError {
	return &AppError{StatusCode: http.StatusNotFound, Message: "Sync run not found", Err: err}
}

// WrapRemoteUnavailable wraps an error as a 502 Bad Gateway.
// Used when the remote catalog cannot be reached and no cached data applies.
func WrapRemoteUnavailable(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusBadGateway, Message: message, Err: err}
}

// WrapPersistence wraps a local store write failure as a 500.
func WrapPersistence(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}

// WrapInternal wraps an error as a 500 Internal Server Error.
func WrapInternal(err error, message string) *AppError {
	return &AppError{StatusCode: http.StatusInternalServerError, Message: message, Err: err}
}
