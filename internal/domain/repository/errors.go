package repository

import "errors"

var (
	// ErrDuplicateParticipant означает, что пользователь уже является
	// участником зачёта (нарушение уникальности пары зачёт-пользователь).
	ErrDuplicateParticipant = errors.New("user is already a participant of this quiz session")
)
