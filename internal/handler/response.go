package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/lienzo/internal/middleware"
	"github.com/hitoshi/lienzo/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外は内部エラーとし、operationを接頭辞として原因のメッセージを返す。
func handleServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError(operation, err))
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeTokenExpired, model.ErrCodeTokenInvalid,
		model.ErrCodeInvalidCredentials, model.ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeNotAdmin:
		return http.StatusForbidden
	case model.ErrCodeProductNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidProductID, model.ErrCodeInvalidField, model.ErrCodeFileRequired,
		model.ErrCodeFilePathRequired, model.ErrCodeInvalidFilePath, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeSlugTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
