package audit

import (
	"context"

	"excursion/models"
)

type contextKey string

const (
	actorKey    contextKey = "audit_actor"
	clientIPKey contextKey = "audit_client_ip"
)

// WithActor attaches the signed-in admin to ctx.
func WithActor(ctx context.Context, user *models.AdminUser) context.Context {
	return context.WithValue(ctx, actorKey, user)
}

// ActorFrom returns the admin attached by WithActor.
func ActorFrom(ctx context.Context) (*models.AdminUser, bool) {
	user, ok := ctx.Value(actorKey).(*models.AdminUser)
	return user, ok && user != nil
}

// WithClientIP attaches the caller address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFrom returns the address attached by WithClientIP.
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// FromContext builds an event whose actor and address come from ctx.
func FromContext(ctx context.Context, action string, details map[string]interface{}) Event {
	actor, _ := ActorFrom(ctx)
	return Event{
		Action:   action,
		Details:  details,
		Actor:    actor,
		ClientIP: ClientIPFrom(ctx),
	}
}
