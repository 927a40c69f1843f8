package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"patorama/pkg/domain"
)

type uploadRow struct {
	UploadModel
	UploadedByName string
}

// CreateUploads records a batch of stored files atomically.
func (s *GormStore) CreateUploads(ctx context.Context, uploads []domain.Upload) ([]domain.Upload, error) {
	if len(uploads) == 0 {
		return nil, nil
	}
	models := make([]UploadModel, 0, len(uploads))
	for _, u := range uploads {
		m := uploadToModel(u)
		m.ID = 0
		models = append(models, m)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Upload, 0, len(models))
	for _, m := range models {
		out = append(out, uploadFromModel(m))
	}
	return out, nil
}

// ListUploads returns a job's uploads, newest first, with uploader names.
func (s *GormStore) ListUploads(ctx context.Context, jobID int64) ([]domain.Upload, error) {
	var rows []uploadRow
	if err := s.db.WithContext(ctx).
		Table("uploads AS up").
		Select("up.*, COALESCE(usr.name, '') AS uploaded_by_name").
		Joins("LEFT JOIN users usr ON usr.id = up.uploaded_by_user_id").
		Where("up.job_id = ?", jobID).
		Order("up.created_at DESC").
		Order("up.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Upload, 0, len(rows))
	for _, r := range rows {
		u := uploadFromModel(r.UploadModel)
		u.UploadedByName = r.UploadedByName
		out = append(out, u)
	}
	return out, nil
}

// GetUpload returns one upload record.
func (s *GormStore) GetUpload(ctx context.Context, id int64) (domain.Upload, bool, error) {
	var model UploadModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Upload{}, false, nil
		}
		return domain.Upload{}, false, err
	}
	return uploadFromModel(model), true, nil
}

// SetUploadFinal flips the final flag.
func (s *GormStore) SetUploadFinal(ctx context.Context, id int64, isFinal bool) (bool, error) {
	res := s.db.WithContext(ctx).Model(&UploadModel{}).Where("id = ?", id).Update("is_final", isFinal)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteUpload removes the upload record.
func (s *GormStore) DeleteUpload(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&UploadModel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
