// Copyright 2025 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package platform

import "fmt"

// ErrorKind classifies a platform API failure per spec §4.4.
type ErrorKind string

const (
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindHTTP    ErrorKind = "http"
	ErrorKindDecode  ErrorKind = "decode"
)

// APIError is the error shape Client methods return when a platform API
// call fails: PlatformApiError{kind, retriable} from spec §4.4. A failure
// to mint the installation token or to parse the base URL, before any call
// is made, is returned as a plain wrapped error, not an *APIError. The
// client never retries internally; Retriable only advises the caller.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Retriable  bool
	Err        error
}

func (e *APIError) Error() string {
	if e.Kind == ErrorKindHTTP {
		return fmt.Sprintf("platform api error: http %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("platform api error: %s: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func networkError(err error) *APIError {
	return &APIError{Kind: ErrorKindNetwork, Retriable: true, Err: err}
}

func decodeError(err error) *APIError {
	return &APIError{Kind: ErrorKindDecode, Retriable: false, Err: err}
}

func httpError(status int, err error) *APIError {
	return &APIError{
		Kind:       ErrorKindHTTP,
		StatusCode: status,
		Retriable:  status >= 500 || status == 429,
		Err:        err,
	}
}
