package util

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of an error surfaced to clients.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidArgument  Kind = "invalid_argument"
	KindInvalidState     Kind = "invalid_state"
	KindAlreadySubmitted Kind = "already_submitted"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindConflict         Kind = "conflict"
	KindUnavailable      Kind = "unavailable"
	KindInternal         Kind = "internal"
)

type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Invalid 构造带自定义信息的参数错误
func Invalid(message string) *AppError {
	return NewError(KindInvalidArgument, message)
}

// Detail returns an error of sentinel's Kind with a more specific message.
// errors.Is still matches the sentinel.
func Detail(sentinel *AppError, format string, args ...interface{}) *AppError {
	return &AppError{Kind: sentinel.Kind, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// Unavailable 包装持久化或依赖服务的错误，调用方可以重试
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindUnavailable, Message: "storage unavailable", Err: err}
}

// KindOf reports the Kind of err, or KindInternal for untagged errors.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

var (
	ErrQuizNotFound         = NewError(KindNotFound, "quiz not found")
	ErrNoActiveQuiz         = NewError(KindNotFound, "no active quiz found")
	ErrQuestionNotFound     = NewError(KindNotFound, "question not found in quiz")
	ErrNoQuestions          = NewError(KindNotFound, "no questions found in this quiz")
	ErrAttemptNotFound      = NewError(KindNotFound, "no quiz result found")
	ErrTeamNotFound         = NewError(KindNotFound, "team not found")
	ErrAdminNotFound        = NewError(KindNotFound, "admin not found")
	ErrImageNotFound        = NewError(KindNotFound, "image not found")
	ErrInvalidQuestionIndex = NewError(KindInvalidArgument, "invalid question index")
	ErrQuizIDRequired       = NewError(KindInvalidArgument, "quiz ID is required")
	ErrInvalidStatus        = NewError(KindInvalidArgument, "invalid status, must be pending, active, or completed")
	ErrQuizNotActive        = NewError(KindInvalidState, "this quiz is not active")
	ErrTimeLimitExceeded    = NewError(KindInvalidState, "time limit for this quiz has passed")
	ErrAlreadySubmitted     = NewError(KindAlreadySubmitted, "you have already submitted the quiz")
	ErrInvalidCredentials   = NewError(KindUnauthorized, "invalid credentials")
	ErrInvalidToken         = NewError(KindUnauthorized, "invalid token")
	ErrTokenRevoked         = NewError(KindUnauthorized, "token has been revoked")
	ErrPermissionDenied     = NewError(KindForbidden, "permission denied")
	ErrEmailRegistered      = NewError(KindConflict, "email already registered")
	ErrStudentIDRegistered  = NewError(KindConflict, "student ID already registered")
	ErrDuplicate            = NewError(KindConflict, "record already exists")
	ErrStaleWrite           = NewError(KindConflict, "record was modified concurrently")
)
