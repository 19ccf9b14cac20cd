package models

// StringPtr возвращает указатель на s. Удобно для необязательных полей UserUpdate.
func StringPtr(s string) *string {
	return &s
}

func IntPtr(i int) *int {
	return &i
}
