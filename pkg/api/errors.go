package api

// ErrorResponse - тело любого ответа сервера со статусом 4xx/5xx.
// Error всегда http.StatusText статуса, клиент различает ошибки по коду,
// Message предназначен человеку.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
