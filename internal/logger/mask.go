package logger

import "strings"

// MaskAccountNumber masks a bank account number, preserving the last 4
// digits so records stay distinguishable in logs.
func MaskAccountNumber(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
