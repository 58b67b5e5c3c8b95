// =============================
// File: internal/middleware/program_errors.go
// =============================
package middleware

// ProgramError ошибка, объявленная программой middleware.
type ProgramError struct {
	Code    int
	Name    string
	Message string
}

// Коды ошибок программы (Anchor начинает пользовательские коды с 6000)
var ProgramErrors = map[int]ProgramError{
	6000: {Code: 6000, Name: "Unauthorized", Message: "Unauthorized access"},
	6001: {Code: 6001, Name: "HookValidationFailed", Message: "Transfer hook validation failed"},
	6002: {Code: 6002, Name: "InvalidPoolInfo", Message: "Invalid pool information"},
	6003: {Code: 6003, Name: "InsufficientLiquidity", Message: "Insufficient liquidity"},
}

// LookupProgramError возвращает описание ошибки программы по коду.
func LookupProgramError(code int) (ProgramError, bool) {
	e, ok := ProgramErrors[code]
	return e, ok
}
