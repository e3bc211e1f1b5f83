package network

import "errors"

var (
	// ErrNotConnected is returned when a session is used before Open or after Close
	ErrNotConnected = errors.New("session not connected")

	// ErrNoSubnet is returned when no local IPv4 network can be scanned
	ErrNoSubnet = errors.New("no scannable IPv4 subnet")
)
