package model

import "time"

// Course — справочные данные курса. Ядро бронирования их не изменяет,
// только читает: проверка зачисления студента и денормализация названия.
type Course struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	TeacherID        int64     `json:"teacher_id"`
	StudentIDs       []int64   `json:"student_ids"`
	RequiresApproval bool      `json:"requires_approval"` // бронирования создаются как pending
	CreatedAt        time.Time `json:"created_at"`
}

// HasStudent проверяет зачислен ли студент на курс.
func (c *Course) HasStudent(studentID int64) bool {
	for _, id := range c.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
