package domain

// Task identifies a pipeline operation for prompt template lookup and metrics.
type Task string

const (
	TaskTitle       Task = "title"
	TaskDescription Task = "description"
	TaskContent     Task = "content"
	TaskCVSection   Task = "cv_section"
	TaskCVMatch     Task = "cv_match"
)

// Locale selects a fixed prompt template variant. No runtime translation happens.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleVI Locale = "vi"
)

// ParseLocale normalizes a locale flag, defaulting to English.
func ParseLocale(s string) Locale {
	if s == string(LocaleVI) {
		return LocaleVI
	}
	return LocaleEN
}
