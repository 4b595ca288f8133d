package whatsapp

import "strings"

// NormalizePhone formats a Nigerian number as +234XXXXXXXXXX.
func NormalizePhone(raw string) string {
	phone := strings.TrimSpace(raw)
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(phone)
	if phone == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(phone, "+234"):
		return phone
	case strings.HasPrefix(phone, "0"):
		return "+234" + phone[1:]
	case strings.HasPrefix(phone, "234"):
		return "+" + phone
	default:
		return "+234" + strings.TrimPrefix(phone, "+")
	}
}
