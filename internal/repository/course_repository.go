package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
)

type CourseRepository struct {
	pool base.Querier
}

func NewCourseRepository(pool base.Querier) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// GetByID получает курс по ID
func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	query := `
		SELECT id, title, description, teacher_id, student_ids, requires_approval, created_at
		FROM courses
		WHERE id = $1
	`

	var course model.Course
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.TeacherID,
		&course.StudentIDs,
		&course.RequiresApproval,
		&course.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	return &course, nil
}
