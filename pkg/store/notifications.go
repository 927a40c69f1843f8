package store

import (
	"context"

	"patorama/pkg/domain"
)

type notificationRow struct {
	NotificationModel
	JobAddress string
}

// CreateNotification appends a notification for a user.
func (s *GormStore) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	model := notificationToModel(n)
	model.ID = 0
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Notification{}, err
	}
	return notificationFromModel(model), nil
}

// ListNotifications returns the newest notifications of a user with the
// address of the related job, if any.
func (s *GormStore) ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []notificationRow
	if err := s.db.WithContext(ctx).
		Table("notifications AS n").
		Select("n.*, COALESCE(j.address, '') AS job_address").
		Joins("LEFT JOIN jobs j ON j.id = n.job_id").
		Where("n.user_id = ?", userID).
		Order("n.created_at DESC").
		Order("n.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		n := notificationFromModel(r.NotificationModel)
		n.JobAddress = r.JobAddress
		out = append(out, n)
	}
	return out, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
// It reports false when the user owns no notification with that id.
func (s *GormStore) MarkNotificationRead(ctx context.Context, id, userID int64) (bool, error) {
	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&NotificationModel{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	if err := db.Model(&NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error; err != nil {
		return false, err
	}
	return true, nil
}

// MarkAllNotificationsRead flips every unread notification of the user.
func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&NotificationModel{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
