package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chief-impact7/OCRvKing/internal/models"
)

// AnswerKeyRepository defines data operations for the reference answer key.
type AnswerKeyRepository interface {
	Current(ctx context.Context) (models.AnswerKey, error)
	Replace(ctx context.Context, key *models.AnswerKey) error
}

type answerKeyRepository struct {
	db *gorm.DB
}

// NewAnswerKeyRepository instantiates the repository.
func NewAnswerKeyRepository(db *gorm.DB) AnswerKeyRepository {
	return &answerKeyRepository{db: db}
}

func (r *answerKeyRepository) Current(ctx context.Context) (models.AnswerKey, error) {
	var key models.AnswerKey
	if err := r.db.WithContext(ctx).Order("created_at DESC").First(&key).Error; err != nil {
		return models.AnswerKey{}, err
	}

	return key, nil
}

func (r *answerKeyRepository) Replace(ctx context.Context, key *models.AnswerKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.AnswerKey{}).Error; err != nil {
			return err
		}
		return tx.Create(key).Error
	})
}
