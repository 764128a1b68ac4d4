// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"errors"
	"fmt"
)

// TransportError is a failure to talk to a remote service: the request
// couldn't be sent, timed out, or the response wasn't usable at the HTTP
// level. It says nothing about the address being looked up.
type TransportError struct {
	Service string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Service, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError

	return errors.As(err, &te)
}
