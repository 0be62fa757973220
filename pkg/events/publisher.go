package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"

	"github.com/audiolink/audiolinkd/pkg/logging"
)

// Publisher mirrors bus events onto a nanomsg PUB socket so external
// processes (session managers, monitoring agents) can follow link activity
// without polling the HTTP API. Messages are "<type> <json>" so SUB sockets
// can filter by topic prefix.
type Publisher struct {
	sock   mangos.Socket
	logger logging.Logger
	sub    *Subscription
	done   chan struct{}
}

// NewPublisher listens on addr (e.g. "tcp://127.0.0.1:7401" or
// "ipc:///run/audiolinkd/events.sock") and forwards every bus event.
func NewPublisher(bus *Bus, addr string, logger logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	sock, err := pub.NewSocket()
	if err != nil {
		return nil, fmt.Errorf("creating pub socket: %w", err)
	}
	if err := sock.Listen(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	sub, err := bus.Subscribe(context.Background(), "")
	if err != nil {
		sock.Close()
		return nil, err
	}

	p := &Publisher{
		sock:   sock,
		logger: logger,
		sub:    sub,
		done:   make(chan struct{}),
	}
	go p.run()

	logger.Info("Event publisher listening", logging.String("addr", addr))
	return p, nil
}

func (p *Publisher) run() {
	defer close(p.done)
	for ev := range p.sub.Channel() {
		payload, err := json.Marshal(ev)
		if err != nil {
			p.logger.Warn("Event marshal failed", logging.Error(err))
			continue
		}
		msg := append([]byte(ev.Type+" "), payload...)
		if err := p.sock.Send(msg); err != nil {
			p.logger.Warn("Event publish failed", logging.Error(err))
		}
	}
}

// Close unsubscribes from the bus and closes the socket.
func (p *Publisher) Close() error {
	p.sub.Unsubscribe()
	<-p.done
	return p.sock.Close()
}
