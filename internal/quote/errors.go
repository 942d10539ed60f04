package quote

import "errors"

// ErrorKind classifies a fetch failure so callers can choose user-facing
// behavior without string matching.
type ErrorKind string

const (
    KindNetwork           ErrorKind = "network"
    KindMalformedResponse ErrorKind = "malformed_response"
    KindInvalidSymbol     ErrorKind = "invalid_symbol"
    KindRateLimited       ErrorKind = "rate_limited"
    KindEmptyResult       ErrorKind = "empty_result"
)

// FetchError is a classified failure from a Client. Message carries the
// provider's own wording when it supplied one, Err the underlying cause.
type FetchError struct {
    Kind    ErrorKind
    Symbol  string
    Message string
    Err     error
}

func (e *FetchError) Error() string {
    msg := string(e.Kind)
    if e.Message != "" {
        msg += ": " + e.Message
    }
    if e.Err != nil {
        msg += ": " + e.Err.Error()
    }
    if e.Symbol != "" {
        return e.Symbol + ": " + msg
    }
    return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// KindOf returns err's classification, or "" when err carries no
// FetchError anywhere in its chain.
func KindOf(err error) ErrorKind {
    var fe *FetchError
    if errors.As(err, &fe) {
        return fe.Kind
    }
    return ""
}
