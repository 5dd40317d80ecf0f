// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrOrderNotFound indicates that a cancel request named an
// order id that does not exist.
package repository

import "errors"

// ErrOrderNotFound is returned when an order id cannot be resolved.
// Handlers should translate this into an HTTP 404 response.
var ErrOrderNotFound = errors.New("order not found")

// ErrPaymentNotFound is returned when a payment id cannot be resolved.
// Handlers should translate this into an HTTP 404 response.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrDoctorNotFound is returned when a doctor id cannot be resolved in
// the catalog. Handlers should translate this into an HTTP 404 response.
var ErrDoctorNotFound = errors.New("doctor not found")
