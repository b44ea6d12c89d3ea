package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

var (
	ErrConfigLoad      = "CONFIG_LOAD_ERROR"
	ErrDatabaseConnect = "DATABASE_CONNECT_ERROR"
	ErrInvalidAddress  = "INVALID_ADDRESS_ERROR"
	ErrInvalidInput    = "INVALID_INPUT_ERROR"
	ErrNotFound        = "NOT_FOUND_ERROR"
	ErrUserNotFound    = "USER_NOT_FOUND_ERROR"
	ErrUnknownAction   = "UNKNOWN_ACTION_ERROR"
	ErrCooldownActive  = "COOLDOWN_ACTIVE_ERROR"
	ErrDailyCapReached = "DAILY_CAP_REACHED_ERROR"
	ErrDuplicateAction = "DUPLICATE_ACTION_ERROR"
	ErrScoreRecompute  = "SCORE_RECOMPUTE_ERROR"
	ErrPersistence     = "PERSISTENCE_ERROR"
)
