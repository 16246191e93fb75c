package goAuthClient

import (
	"errors"

	"github.com/MrEthical07/goAuthClient/gateway"
	"github.com/MrEthical07/goAuthClient/session"
)

var (
	// ErrInvalidAuthResponse reports a 2xx sign-in or sign-up response that
	// lacks a token.
	ErrInvalidAuthResponse = errors.New("invalid auth response")
	// ErrManagerClosed is returned by operations after Close.
	ErrManagerClosed = errors.New("manager closed")
	ErrBuilderUsed   = errors.New("builder already used")
)

// Re-exported so callers of the Manager need not import the sub-packages.
var (
	ErrNoSession        = session.ErrNoSession
	ErrStoreUnavailable = session.ErrStoreUnavailable

	ErrNetwork      = gateway.ErrNetwork
	ErrDecode       = gateway.ErrDecode
	ErrHTTP         = gateway.ErrHTTP
	ErrUnauthorized = gateway.ErrUnauthorized
	ErrForbidden    = gateway.ErrForbidden
	ErrServer       = gateway.ErrServer
)
