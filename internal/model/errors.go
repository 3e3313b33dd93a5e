package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 管理画面に表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, product, media, system
	Action   string // 利用者向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeTokenExpired         = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid         = "TOKEN_INVALID"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	ErrCodeNotAdmin             = "NOT_ADMIN"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeInvalidProductID     = "INVALID_PRODUCT_ID"
	ErrCodeInvalidField         = "INVALID_FIELD"
	ErrCodeSlugTaken            = "SLUG_TAKEN"
	ErrCodeFileRequired         = "FILE_REQUIRED"
	ErrCodeFilePathRequired     = "FILE_PATH_REQUIRED"
	ErrCodeInvalidFilePath      = "INVALID_FILE_PATH"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeInternal             = "INTERNAL_ERROR"
)

// NewUnauthorizedError はトークン未提示エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "access denied: no token provided",
		Category: "auth",
		Action:   "Log in and send the token as 'Authorization: Bearer <token>'.",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "token expired",
		Category: "auth",
		Action:   "Log in again to obtain a new token.",
	}
}

// NewTokenInvalidError は不正なトークンのエラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenInvalid,
		Message:  "invalid or malformed token",
		Category: "auth",
		Action:   "Log in again to obtain a new token.",
	}
}

// NewForbiddenError はロール不一致エラーを生成する。
func NewForbiddenError(required Role) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("forbidden: %s role required", required),
		Category: "auth",
		Action:   "Use an account with the required role.",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// 原因の内訳（未確認アカウント等）は利用者に区別させない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "invalid credentials",
		Category: "auth",
		Action:   "Check the email and password.",
	}
}

// NewAuthenticationFailedError は認証サービスが本人情報を返さなかった場合のエラーを生成する。
func NewAuthenticationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationFailed,
		Message:  "authentication failed",
		Category: "auth",
		Action:   "Try again later.",
	}
}

// NewNotAdminError は管理者以外のログインを拒否するエラーを生成する。
func NewNotAdminError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAdmin,
		Message:  "user not authorized for admin panel",
		Category: "auth",
		Action:   "Ask an administrator to grant the admin role.",
	}
}

// NewProductNotFoundError は商品未検出エラーを生成する。
func NewProductNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProductNotFound,
		Message:  "product not found",
		Category: "product",
		Action:   "Check the product id or slug.",
	}
}

// NewInvalidProductIDError は商品IDの形式エラーを生成する。
func NewInvalidProductIDError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProductID,
		Message:  fmt.Sprintf("invalid product id: %s", id),
		Category: "validation",
		Action:   "Product ids are positive integers.",
	}
}

// NewInvalidFieldError は項目値の検証エラーを生成する。
func NewInvalidFieldError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidField,
		Message:  fmt.Sprintf("invalid value for %s: %s", field, reason),
		Category: "validation",
		Action:   fmt.Sprintf("Correct the %s field and retry.", field),
	}
}

// NewSlugTakenError はスラッグ重複エラーを生成する。
func NewSlugTakenError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeSlugTaken,
		Message:  fmt.Sprintf("slug already in use: %s", slug),
		Category: "product",
		Action:   "Choose a different name or slug.",
	}
}

// NewFileRequiredError はファイル未添付エラーを生成する。
func NewFileRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeFileRequired,
		Message:  "file not found in request",
		Category: "media",
		Action:   "Attach the image in the 'file' form field.",
	}
}

// NewFilePathRequiredError はfilePath未指定エラーを生成する。
func NewFilePathRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeFilePathRequired,
		Message:  "filePath is required",
		Category: "media",
		Action:   "Pass the storage path as the filePath query parameter.",
	}
}

// NewInvalidFilePathError は不正なストレージパスのエラーを生成する。
func NewInvalidFilePathError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilePath,
		Message:  fmt.Sprintf("invalid filePath: %s", path),
		Category: "media",
		Action:   "Use the storagePath returned by the media listing.",
	}
}

// NewInvalidRequestError はリクエストボディの解析エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("invalid request: %s", reason),
		Category: "validation",
		Action:   "Send a valid JSON or multipart/form-data body.",
	}
}

// NewInternalError は外部サービス障害などの内部エラーを生成する。
// 原因のメッセージをそのまま含める。
func NewInternalError(operation string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  fmt.Sprintf("%s: %v", operation, err),
		Category: "system",
		Action:   "Try again later.",
	}
}
