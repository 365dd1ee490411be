// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// クライアントに返すコードとメッセージのみを含み、
// ストア由来の内部詳細は含めない（内部詳細はログ側にのみ記録する）。
type APIError struct {
	Code     string // エラーコード
	Message  string // ユーザー向けメッセージ
	Category string // カテゴリ: auth, validation, event, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeDuplicateUser    = "DUPLICATE_USER"
	ErrCodeInvalidCreds     = "INVALID_CREDENTIALS"
	ErrCodeNotAuthenticated = "NOT_AUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeEventNotFound    = "EVENT_NOT_FOUND"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// NewValidationError は必須フィールド欠落などの入力エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
	}
}

// NewDuplicateUserError はユーザー名またはメールアドレスの重複エラーを生成する。
// どちらが重複したかは区別しない。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "User already exists with this username or email",
		Category: "auth",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不在とパスワード不一致で同一のメッセージを返し、
// ユーザー名の列挙を防ぐ。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCreds,
		Message:  "Invalid credentials",
		Category: "auth",
	}
}

// NewNotAuthenticatedError は未認証エラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "Not authenticated",
		Category: "auth",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  message,
		Category: "auth",
	}
}

// NewEventNotFoundError はイベント未検出エラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("Event not found: %s", eventID),
		Category: "event",
	}
}

// NewStoreUnavailableError はストア到達不能エラーを生成する。
// ドライバのエラー詳細はここに含めず、呼び出し側でログに記録する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "Service temporarily unavailable",
		Category: "system",
	}
}
