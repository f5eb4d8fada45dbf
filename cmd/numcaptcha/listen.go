package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

var ErrUnsupportedNetwork = errors.New("unsupported bind network")

// splitBindAddress guesses the network of addresses like ":8923",
// "unix:///run/numcaptcha.sock" or "http://0.0.0.0:8923" when -bind-network
// is empty.
func splitBindAddress(address string) (network, addr string, err error) {
	if !strings.Contains(address, "://") {
		if strings.HasPrefix(address, ":") {
			address = "localhost" + address
		}
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return "", "", fmt.Errorf("can't parse bind address %q: %w", address, err)
	}

	switch u.Scheme {
	case "unix":
		return "unix", u.Path, nil
	case "tcp", "http", "https":
		return "tcp", u.Host, nil
	default:
		return "", "", fmt.Errorf("%w: %q in %s", ErrUnsupportedNetwork, u.Scheme, address)
	}
}

// displayURL is what gets logged for a listener.
func displayURL(network, addr string) string {
	switch network {
	case "unix":
		return "unix:" + addr
	case "tcp":
		if strings.HasPrefix(addr, ":") {
			return "http://localhost" + addr
		}
		return "http://" + addr
	default:
		return fmt.Sprintf("(%s) %s", network, addr)
	}
}

// listen binds network/addr. Unix sockets get their permissions set to
// socketMode, an octal string like "0770".
func listen(network, addr, socketMode string) (net.Listener, string, error) {
	if network == "" {
		var err error
		if network, addr, err = splitBindAddress(addr); err != nil {
			return nil, "", err
		}
	}

	where := displayURL(network, addr)

	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to bind to %s: %w", where, err)
	}

	if network != "unix" {
		return ln, where, nil
	}

	mode, err := strconv.ParseUint(socketMode, 8, 32)
	if err != nil {
		ln.Close()
		return nil, "", fmt.Errorf("could not parse socket mode %s: %w", socketMode, err)
	}

	if err := os.Chmod(addr, os.FileMode(mode)); err != nil {
		ln.Close()
		return nil, "", fmt.Errorf("could not change socket mode: %w", err)
	}

	return ln, where, nil
}
