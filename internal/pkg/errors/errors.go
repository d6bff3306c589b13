package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок аутентификации (неверный токен, неверные учетные данные).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (например, повторное зачисление в зачёт).
	ErrConflict = errors.New("resource state conflict")

	// ErrTimeExpired сообщает, что дедлайн попытки истёк и попытка была
	// принудительно завершена. Это не сбой: вызывающий должен показать
	// итоговый результат.
	ErrTimeExpired = errors.New("attempt time limit expired")
)
