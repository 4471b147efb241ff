package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
	"github.com/tutorhub/classbooking/internal/schedule"
)

type AvailabilityService struct {
	tx        TxRunner
	availRepo AvailabilityRepository
	userRepo  UserRepository
	logger    *zap.Logger
}

func NewAvailabilityService(
	tx TxRunner,
	availRepo AvailabilityRepository,
	userRepo UserRepository,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		tx:        tx,
		availRepo: availRepo,
		userRepo:  userRepo,
		logger:    logger,
	}
}

// Publish публикует пачку слотов учителя одной партией.
// Каждый слот обязан иметь фиксированную длительность занятия.
func (s *AvailabilityService) Publish(ctx context.Context, actorID, teacherID int64, ranges []schedule.Slot) (uuid.UUID, error) {
	if err := s.checkPublishPermission(ctx, actorID, teacherID); err != nil {
		return uuid.Nil, err
	}

	if len(ranges) == 0 {
		return uuid.Nil, fmt.Errorf("%w: no slots to publish", ErrValidation)
	}

	for _, r := range ranges {
		if !r.End.After(r.Start) {
			return uuid.Nil, fmt.Errorf("%w: end time must be after start time", ErrValidation)
		}
		if r.End.Sub(r.Start) != schedule.LessonDuration {
			return uuid.Nil, fmt.Errorf("%w: slot duration must be exactly %s", ErrValidation, schedule.LessonDuration)
		}
	}

	batchID := uuid.New()
	slots := make([]*model.Availability, 0, len(ranges))
	for _, r := range ranges {
		slots = append(slots, &model.Availability{
			TeacherID: teacherID,
			BatchID:   batchID,
			StartTime: r.Start,
			EndTime:   r.End,
		})
	}

	err := s.tx.InTx(ctx, func(q base.Querier) error {
		return s.availRepo.CreateBatch(ctx, q, slots)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("publish availability: %w", err)
	}

	s.logger.Info("Availability published",
		zap.Int64("teacher_id", teacherID),
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(slots)),
	)

	return batchID, nil
}

// PublishRecurring разворачивает еженедельное правило в слоты и
// публикует их одной партией.
func (s *AvailabilityService) PublishRecurring(ctx context.Context, actorID, teacherID int64, rule schedule.Rule) (uuid.UUID, int, error) {
	slots, err := schedule.Expand(rule)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if len(slots) == 0 {
		// Пустой диапазон допустим: публиковать нечего
		if err := s.checkPublishPermission(ctx, actorID, teacherID); err != nil {
			return uuid.Nil, 0, err
		}
		return uuid.Nil, 0, nil
	}

	batchID, err := s.Publish(ctx, actorID, teacherID, slots)
	if err != nil {
		return uuid.Nil, 0, err
	}

	return batchID, len(slots), nil
}

// ListOpen получает открытые будущие слоты учителя по возрастанию времени
func (s *AvailabilityService) ListOpen(ctx context.Context, teacherID int64) ([]*model.Availability, error) {
	return s.availRepo.ListOpen(ctx, teacherID, time.Now())
}

// Remove удаляет непотреблённый слот. Разрешено только владеющему
// учителю или администратору.
func (s *AvailabilityService) Remove(ctx context.Context, actorID, availabilityID int64) error {
	slot, err := s.availRepo.GetByID(ctx, availabilityID)
	if err != nil {
		return fmt.Errorf("get availability: %w", err)
	}

	if slot == nil {
		return fmt.Errorf("%w: availability %d", ErrNotFound, availabilityID)
	}

	if err := s.checkPublishPermission(ctx, actorID, slot.TeacherID); err != nil {
		return err
	}

	err = s.availRepo.Delete(ctx, availabilityID)
	if err != nil {
		if base.IsNotFound(err) {
			// Слот потреблён между чтением и удалением
			return fmt.Errorf("%w: availability %d", ErrNotFound, availabilityID)
		}
		return fmt.Errorf("delete availability: %w", err)
	}

	s.logger.Info("Availability removed",
		zap.Int64("availability_id", availabilityID),
		zap.Int64("actor_id", actorID),
	)

	return nil
}

// RemoveBatch удаляет все оставшиеся слоты одной публикации
func (s *AvailabilityService) RemoveBatch(ctx context.Context, actorID, teacherID int64, batchID uuid.UUID) (int64, error) {
	if err := s.checkPublishPermission(ctx, actorID, teacherID); err != nil {
		return 0, err
	}

	removed, err := s.availRepo.DeleteBatch(ctx, teacherID, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete availability batch: %w", err)
	}

	s.logger.Info("Availability batch removed",
		zap.Int64("teacher_id", teacherID),
		zap.String("batch_id", batchID.String()),
		zap.Int64("removed", removed),
	)

	return removed, nil
}

// checkPublishPermission разрешает действие владеющему учителю и администратору
func (s *AvailabilityService) checkPublishPermission(ctx context.Context, actorID, teacherID int64) error {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("get actor: %w", err)
	}

	if actor == nil {
		return fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}

	if actor.ID != teacherID && !actor.IsAdmin() {
		return fmt.Errorf("%w: only the owning teacher or an admin may manage availability", ErrPermission)
	}

	return nil
}
