package services

import "context"

// Notifier pushes reward events to connected clients. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload interface{}) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, string, interface{}) error { return nil }
