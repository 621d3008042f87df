package freeport

import (
	"net"
)

// Addr returns a loopback address with a port that was free at the time of the call.
func Addr() (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		return "", err
	}

	defer ln.Close()

	return ln.Addr().String(), nil
}
