package application

import (
	"context"

	"switchstack/internal/observer"
	"switchstack/internal/reachability"
	"switchstack/internal/realtime"
)

type Connection interface {
	Sender
	Start(ctx context.Context)
	Stop()
	Connect()
	Disconnect()
	IsConnected() bool
	OnStatus(h func(realtime.Event)) observer.ID
	RemoveStatusHandler(id observer.ID) bool
	OnMessage(h func([]byte)) observer.ID
	RemoveMessageHandler(id observer.ID) bool
}

type NetworkMonitor interface {
	Start(ctx context.Context) error
	Stop()
	IsOnline() bool
	Subscribe(h func(reachability.Change)) observer.ID
	Unsubscribe(id observer.ID) bool
}
