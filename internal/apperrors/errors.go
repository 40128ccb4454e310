package apperrors

import "errors"

// ErrParse indicates a fatal violation detected while ingesting journal input.
// Policy misses under the ERROR checking style and failed metadata assertions
// wrap this sentinel.
var ErrParse = errors.New("parse error")
