package database

import (
	"context"
	"errors"
)

// ErrNotConnected is returned when a store handle is used before it is open.
var ErrNotConnected = errors.New("database connection not established")

// Connection is a long-lived handle to the message store. It is opened once at
// process start and shared by every request; Ping is used to decide readiness.
type Connection interface {
	Driver() string
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
