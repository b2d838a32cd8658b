package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/chief-impact7/OCRvKing/internal/models"
)

// GradeRecordFilter narrows archive queries.
type GradeRecordFilter struct {
	RunID        *string
	StudentClass *string
}

// GradeRecordRepository defines data operations for archived grading results.
type GradeRecordRepository interface {
	CreateBatch(ctx context.Context, records []models.GradeRecord) error
	List(ctx context.Context, filter GradeRecordFilter) ([]models.GradeRecord, error)
}

type gradeRecordRepository struct {
	db *gorm.DB
}

// NewGradeRecordRepository instantiates the repository.
func NewGradeRecordRepository(db *gorm.DB) GradeRecordRepository {
	return &gradeRecordRepository{db: db}
}

func (r *gradeRecordRepository) CreateBatch(ctx context.Context, records []models.GradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *gradeRecordRepository) List(ctx context.Context, filter GradeRecordFilter) ([]models.GradeRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.GradeRecord{})

	if filter.RunID != nil {
		query = query.Where("run_id = ?", *filter.RunID)
	}
	if filter.StudentClass != nil {
		query = query.Where("student_class = ?", *filter.StudentClass)
	}

	var records []models.GradeRecord
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}
