package application

import (
	"context"

	"switchstack/internal/domain"
)

type RoomAPI interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	CreateRoom(ctx context.Context, deviceID, name, icon string) (domain.Room, error)
	UpdateRoom(ctx context.Context, deviceID string, patch domain.RoomPatch) error
	DeleteRoom(ctx context.Context, deviceID string) error
	UpdateSwitch(ctx context.Context, deviceID, switchID string, patch domain.SwitchPatch) error
	ListRoomUsers(ctx context.Context, deviceID string) ([]domain.User, error)
	AddRoomUser(ctx context.Context, deviceID, email string) error
	RemoveRoomUser(ctx context.Context, deviceID, email string) error
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (domain.User, error)
	Register(ctx context.Context, name, email, password, confirm string) (domain.User, error)
	Logout(ctx context.Context) error
	CurrentUser() (domain.User, bool)
	IsAuthenticated() bool
}

// Sender transmits an encoded message over the real-time connection.
type Sender interface {
	Send(data []byte) error
}
