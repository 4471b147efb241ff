package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
)

type AvailabilityRepository struct {
	pool base.Querier
}

func NewAvailabilityRepository(pool base.Querier) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// CreateBatch создаёт пачку слотов одной публикации
func (r *AvailabilityRepository) CreateBatch(ctx context.Context, q base.Querier, slots []*model.Availability) error {
	query := `
		INSERT INTO availabilities (teacher_id, batch_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	for _, slot := range slots {
		err := q.QueryRow(
			ctx, query,
			slot.TeacherID,
			slot.BatchID,
			slot.StartTime,
			slot.EndTime,
		).Scan(&slot.ID, &slot.CreatedAt)

		if err != nil {
			return fmt.Errorf("create availability: %w", err)
		}
	}

	return nil
}

// GetByID получает слот по ID
func (r *AvailabilityRepository) GetByID(ctx context.Context, id int64) (*model.Availability, error) {
	query := `
		SELECT id, teacher_id, batch_id, start_time, end_time, created_at
		FROM availabilities
		WHERE id = $1
	`

	var slot model.Availability
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.BatchID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get availability by id: %w", err)
	}

	return &slot, nil
}

// ListOpen получает открытые слоты учителя начиная с указанного момента,
// по возрастанию времени начала
func (r *AvailabilityRepository) ListOpen(ctx context.Context, teacherID int64, from time.Time) ([]*model.Availability, error) {
	query := `
		SELECT id, teacher_id, batch_id, start_time, end_time, created_at
		FROM availabilities
		WHERE teacher_id = $1
		  AND start_time >= $2
		ORDER BY start_time
	`

	rows, err := r.pool.Query(ctx, query, teacherID, from)
	if err != nil {
		return nil, fmt.Errorf("list open availabilities: %w", err)
	}
	defer rows.Close()

	var slots []*model.Availability
	for rows.Next() {
		var slot model.Availability
		err := rows.Scan(
			&slot.ID,
			&slot.TeacherID,
			&slot.BatchID,
			&slot.StartTime,
			&slot.EndTime,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		slots = append(slots, &slot)
	}

	return slots, nil
}

// ConsumeOpen атомарно удаляет свободный слот и возвращает его данные.
// nil без ошибки означает, что слот уже потреблён или удалён —
// проигранная гонка, а не сбой.
func (r *AvailabilityRepository) ConsumeOpen(ctx context.Context, q base.Querier, id int64) (*model.Availability, error) {
	query := `
		DELETE FROM availabilities
		WHERE id = $1
		RETURNING id, teacher_id, batch_id, start_time, end_time, created_at
	`

	var slot model.Availability
	err := q.QueryRow(ctx, query, id).Scan(
		&slot.ID,
		&slot.TeacherID,
		&slot.BatchID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("consume availability: %w", err)
	}

	return &slot, nil
}

// Delete удаляет непотреблённый слот
func (r *AvailabilityRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM availabilities WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete availability: %w", err)
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// DeleteBatch удаляет все оставшиеся слоты одной публикации
func (r *AvailabilityRepository) DeleteBatch(ctx context.Context, teacherID int64, batchID uuid.UUID) (int64, error) {
	query := `DELETE FROM availabilities WHERE teacher_id = $1 AND batch_id = $2`

	result, err := r.pool.Exec(ctx, query, teacherID, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete availability batch: %w", err)
	}

	return result.RowsAffected(), nil
}
