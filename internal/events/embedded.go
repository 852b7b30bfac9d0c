package events

import (
	"fmt"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

// Embedded is an in-process NATS server used when no external broker is
// configured.
type Embedded struct {
	srv *natsserver.Server
}

// StartEmbedded starts a NATS server listening on host:port. A port of -1
// picks a free port.
func StartEmbedded(host string, port int) (*Embedded, error) {
	srv, err := natsserver.NewServer(&natsserver.Options{
		Host:   host,
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedded NATS: %w", err)
	}
	srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("embedded NATS on %s:%d not ready", host, port)
	}
	return &Embedded{srv: srv}, nil
}

// URL returns the client URL of the server.
func (e *Embedded) URL() string {
	return e.srv.ClientURL()
}

// Close shuts the server down and waits for it to stop.
func (e *Embedded) Close() error {
	e.srv.Shutdown()
	e.srv.WaitForShutdown()
	return nil
}
