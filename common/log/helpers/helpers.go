package helpers

func CopyStringToPointer(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func CopyPointerToString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func CopyIntToPointer(i int) *int {
	return &i
}

// CopyPointerToInt returns def when i is nil.
func CopyPointerToInt(i *int, def int) int {
	if i == nil {
		return def
	}
	return *i
}
