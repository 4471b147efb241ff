package service

import "errors"

// Ошибки ядра бронирования. Все операции возвращают их синхронно
// вызывающему; обёртки через %w сохраняют возможность errors.Is.
var (
	// ErrSlotUnavailable — слот уже потреблён конкурентным бронированием
	// или удалён учителем. Штатная проигранная гонка: вызывающий должен
	// перечитать список открытых слотов, а не показывать общий сбой.
	ErrSlotUnavailable = errors.New("slot is no longer available")

	// ErrNotFound — запись по указанному ID не существует.
	ErrNotFound = errors.New("not found")

	// ErrPermission — действие не разрешено этому пользователю.
	ErrPermission = errors.New("permission denied")

	// ErrInvalidState — недопустимый переход статуса, например повторная
	// отмена или отмена позже дедлайна.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidation — некорректные входные данные.
	ErrValidation = errors.New("validation failed")
)
