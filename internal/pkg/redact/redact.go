// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов (токены, пароли, номера телефонов). Цель - исключить
// утечки секретов сессии, сохранив полезный для отладки контекст.
package redact

import (
	"strings"
	"unicode"
)

// Phone маскирует номер телефона для логирования.
//
// Правила:
//   - учитываются только цифры, прочие символы (+, пробелы, дефисы) отбрасываются;
//   - если цифр меньше четырёх - возвращается "***";
//   - иначе возвращается "***" + две последние цифры.
//
// Примеры:
//
//	"+381 64 123-45-67" -> "***67"
//	"123"               -> "***"
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	digits := []rune(b.String())
	if len(digits) < 4 {
		return "***"
	}

	return "***" + string(digits[len(digits)-2:])
}

// Token возвращает литерал-заглушку для токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Password возвращает литерал-заглушку для пароля в логах.
func Password() string { return "[REDACTED_PASSWORD]" }
