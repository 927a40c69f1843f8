package app

import (
	"context"

	"patorama/pkg/domain"
)

const notificationListLimit = 50

// ListNotifications returns the actor's latest notifications, newest first.
func (a *App) ListNotifications(ctx context.Context, actor domain.User) ([]domain.Notification, error) {
	list, err := a.store.ListNotifications(ctx, actor.ID, notificationListLimit)
	if err != nil {
		return nil, internal("Failed to fetch notifications", err)
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkNotificationRead only touches notifications owned by the actor.
func (a *App) MarkNotificationRead(ctx context.Context, actor domain.User, id int64) error {
	ok, err := a.store.MarkNotificationRead(ctx, id, actor.ID)
	if err != nil {
		return internal("Failed to update notification", err)
	}
	if !ok {
		return notFound("Notification not found")
	}
	return nil
}

// MarkAllNotificationsRead flips every unread notification of the actor and
// returns how many changed.
func (a *App) MarkAllNotificationsRead(ctx context.Context, actor domain.User) (int64, error) {
	n, err := a.store.MarkAllNotificationsRead(ctx, actor.ID)
	if err != nil {
		return 0, internal("Failed to update notifications", err)
	}
	return n, nil
}
