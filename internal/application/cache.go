package application

import "context"

// Cache keys.
const (
	UserKey    = "switchstack-user"
	RoomsKey   = "switchstack-rooms"
	SessionKey = "switchstack-session"
)

// Cache is the persistent key-value store kept on the device.
type Cache interface {
	// Load returns ok=false when key is absent.
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
