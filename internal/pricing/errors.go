package pricing

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies why a lookup failed.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindNotFound  ErrorKind = "not_found"
	KindMalformed ErrorKind = "malformed"
	KindTransport ErrorKind = "transport"
)

// LookupError is returned by every Lookup implementation on failure.
type LookupError struct {
	Kind    ErrorKind
	Service string
	SKU     string
	Region  string
	Err     error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("pricing lookup %s %s in %s: %s", e.Service, e.SKU, e.Region, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *LookupError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *LookupError
	return errors.As(err, &le) && le.Kind == kind
}

func lookupErr(kind ErrorKind, service, sku, region string, err error) *LookupError {
	return &LookupError{Kind: kind, Service: service, SKU: sku, Region: region, Err: err}
}

// callErr maps an error from a remote call to timeout or transport.
func callErr(ctx context.Context, service, sku, region string, err error) *LookupError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return lookupErr(KindTimeout, service, sku, region, err)
	}
	return lookupErr(KindTransport, service, sku, region, err)
}
