// internal/blockchain/errors.go
package blockchain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind классифицирует ошибку для вызывающей стороны.
type ErrorKind string

const (
	KindValidation          ErrorKind = "validation"
	KindDerivationExhausted ErrorKind = "derivation_exhausted"
	KindMissingAccountRole  ErrorKind = "missing_account_role"
	KindEncoding            ErrorKind = "encoding"
	KindSignatureDeclined   ErrorKind = "signature_declined"
	KindSimulationRejected  ErrorKind = "simulation_rejected"
	KindNetworkFailure      ErrorKind = "network_failure"
	KindTimeout             ErrorKind = "timeout"
)

var (
	// ErrValidation возникает при некорректных входных данных или устаревшем кеше адресов
	ErrValidation = errors.New("validation error")

	// ErrDerivationExhausted возникает, когда ни один bump не дал адрес вне кривой
	ErrDerivationExhausted = errors.New("program address derivation exhausted")

	// ErrMissingAccountRole возникает, когда для слота шаблона не передан адрес
	ErrMissingAccountRole = errors.New("missing account role")

	// ErrEncoding возникает, когда аргумент не помещается в объявленное поле
	ErrEncoding = errors.New("encoding error")

	// ErrSignatureDeclined возникает, когда подписант отказался подписывать
	ErrSignatureDeclined = errors.New("signature declined")

	// ErrSimulationRejected возникает, когда программа отклонила транзакцию при симуляции
	ErrSimulationRejected = errors.New("simulation rejected")

	// ErrNetworkFailure возникает при сбое транспорта RPC
	ErrNetworkFailure = errors.New("network failure")

	// ErrTimeout возникает, когда статус не стал финальным до дедлайна
	ErrTimeout = errors.New("confirmation timeout")
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:          ErrValidation,
	KindDerivationExhausted: ErrDerivationExhausted,
	KindMissingAccountRole:  ErrMissingAccountRole,
	KindEncoding:            ErrEncoding,
	KindSignatureDeclined:   ErrSignatureDeclined,
	KindSimulationRejected:  ErrSimulationRejected,
	KindNetworkFailure:      ErrNetworkFailure,
	KindTimeout:             ErrTimeout,
}

// Error несёт полный контекст вызова: метод, селектор, список аккаунтов и логи.
type Error struct {
	Kind      ErrorKind
	Method    string
	Selector  string
	Accounts  []string
	DataLen   int
	Logs      []string
	// Signature задана, если транзакция могла попасть в сеть: перед повтором
	// нужно перезапросить её статус.
	Signature string
	Err       error
}

// NewError создаёт ошибку заданного вида.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf создаёт ошибку заданного вида с форматированным сообщением.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Method != "" {
		fmt.Fprintf(&b, " [%s", e.Method)
		if e.Selector != "" {
			fmt.Fprintf(&b, " %s", e.Selector)
		}
		b.WriteString("]")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap возвращает оригинальную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с sentinel-значением её вида.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// CallInfo описывает вызов для логов и контекста ошибок.
type CallInfo struct {
	Method   string
	Selector string
	Accounts []string
	DataLen  int
}

// WithCall дополняет ошибку контекстом вызова, не перезаписывая уже заданные поля.
func (e *Error) WithCall(info CallInfo) *Error {
	if e.Method == "" {
		e.Method = info.Method
	}
	if e.Selector == "" {
		e.Selector = info.Selector
	}
	if e.Accounts == nil {
		e.Accounts = info.Accounts
	}
	if e.DataLen == 0 {
		e.DataLen = info.DataLen
	}
	return e
}

// KindOf возвращает вид ошибки или пустую строку, если ошибка не классифицирована.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind проверяет вид ошибки.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Retryable сообщает, имеет ли смысл повторять операцию.
// Для Timeout повтор допустим только после повторного запроса статуса подписи.
func Retryable(kind ErrorKind) bool {
	switch kind {
	case KindNetworkFailure, KindTimeout:
		return true
	default:
		return false
	}
}
