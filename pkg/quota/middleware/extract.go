package middleware

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"mercator-hq/quota/pkg/quota"
)

var (
	// ErrMethodNotImplemented is returned when a recognised extraction
	// method has no implementation.
	ErrMethodNotImplemented = errors.New("client address method not implemented")

	// ErrUnknownMethod is returned by NewExtractor for an unrecognised
	// extraction method.
	ErrUnknownMethod = errors.New("unknown client address method")

	// ErrNoClientAddr is returned when no method yields an address.
	ErrNoClientAddr = errors.New("no client address found")
)

// Extractor resolves the client address of a request.
type Extractor struct {
	methods []string
}

// NewExtractor creates an Extractor trying methods in order. An empty list
// selects quota.DefaultIPAddrMethods.
func NewExtractor(methods []string) (*Extractor, error) {
	if len(methods) == 0 {
		methods = quota.DefaultIPAddrMethods
	}
	for _, m := range methods {
		switch m {
		case quota.MethodXRealIP, quota.MethodSocket, quota.MethodXForwardedFor:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
		}
	}
	return &Extractor{methods: append([]string(nil), methods...)}, nil
}

// Methods returns the configured method list.
func (x *Extractor) Methods() []string {
	return append([]string(nil), x.methods...)
}

// Extract returns the client identity and the method that produced it.
// On failure the returned method names the method that failed, or is empty
// when every method was skipped.
func (x *Extractor) Extract(r *http.Request) (quota.Identity, string, error) {
	for _, m := range x.methods {
		switch m {
		case quota.MethodXRealIP:
			v := strings.TrimSpace(r.Header.Get(quota.MethodXRealIP))
			if v == "" {
				continue
			}
			id, err := quota.ParseIPAddr(v)
			if err != nil {
				return quota.Identity{}, m, fmt.Errorf("%s header: %w", m, err)
			}
			return id, m, nil

		case quota.MethodSocket:
			id, err := remoteIdentity(r.RemoteAddr)
			if err != nil {
				return quota.Identity{}, m, err
			}
			return id, m, nil

		case quota.MethodXForwardedFor:
			return quota.Identity{}, m, fmt.Errorf("%w: %s", ErrMethodNotImplemented, m)
		}
	}
	return quota.Identity{}, "", ErrNoClientAddr
}

// remoteIdentity parses http.Request.RemoteAddr, which is normally
// host:port but may be a bare address behind some listeners.
func remoteIdentity(remoteAddr string) (quota.Identity, error) {
	if remoteAddr == "" {
		return quota.Identity{}, fmt.Errorf("%w: empty remote address", ErrNoClientAddr)
	}
	if ap, err := netip.ParseAddrPort(remoteAddr); err == nil {
		return quota.IPAddr(ap.Addr()), nil
	}
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	id, err := quota.ParseIPAddr(host)
	if err != nil {
		return quota.Identity{}, fmt.Errorf("%w: remote address %q", ErrNoClientAddr, remoteAddr)
	}
	return id, nil
}
