// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidCEP проверяет формат бразильского почтового индекса:
// восемь цифр, допускается дефис после пятой ("01310-100" или "01310100").
func IsValidCEP(cep string) bool {
	if len(cep) != 8 && len(cep) != 9 {
		return false
	}

	digits := 0
	for i, ch := range cep {
		if ch == '-' {
			if i != 5 || len(cep) != 9 {
				return false
			}
			continue
		}
		if !unicode.IsDigit(ch) {
			return false
		}
		digits++
	}

	return digits == 8
}
