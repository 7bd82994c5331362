// Пакет errors — конструкторы стандартных ошибок HTTP API Pindrop.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors //nolint:revive // конфликт имени со stdlib осознанный, используется с алиасом apierrors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок API: некорректный ввод, отсутствие записи и внутренняя
// ошибка, плюс специфические условия регистрации.
const (
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeFileTooLarge      = "FILE_TOO_LARGE"
	CodePinSpaceExhausted = "PIN_SPACE_EXHAUSTED"
	CodeInternalError     = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные (в т.ч. PIN неверной формы).
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 запись не найдена (неизвестный или истёкший PIN).
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// FileTooLarge — 413 файл превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// PinSpaceExhausted — 507 свободных PIN не осталось.
func PinSpaceExhausted(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInsufficientStorage, CodePinSpaceExhausted, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
