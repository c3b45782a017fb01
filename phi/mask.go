package phi

import (
	"strings"
	"unicode/utf8"
)

// MaskPhone keeps the last four digits: "(***) ***-1234".
func MaskPhone(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	if len(digits) < 4 {
		return "(***) ***-****"
	}
	return "(***) ***-" + string(digits[len(digits)-4:])
}

// MaskEmail keeps the first character of the local part and the domain:
// "j****@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at < 1 || at == len(email)-1 {
		return "****"
	}
	_, size := utf8.DecodeRuneInString(email)
	return email[:size] + "****" + email[at:]
}
