package domain

// Language enumerates the display languages the app ships translations
// for.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
	LanguageGerman  Language = "de"
)

// DefaultLanguage is used until the user picks another one.
const DefaultLanguage = LanguageEnglish

// Valid reports whether the code is one of the shipped languages.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageRussian, LanguageGerman:
		return true
	}
	return false
}
