package domain

import "errors"

var (
	// ErrInvalidConfiguration — параметры хаоса вне допустимых диапазонов (400).
	ErrInvalidConfiguration = errors.New("invalid chaos configuration")

	// ErrSimulatedCrash — намеренно внедренный отказ (500). Внутри не ретраится.
	ErrSimulatedCrash = errors.New("simulated crash (chaos injection)")

	// ErrDependencyUnavailable — зависимость не ответила в пределах таймаута.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrDegradedOperation — кэш жив, но запись/удаление не прошли.
	ErrDegradedOperation = errors.New("degraded operation")
)
