package youtube

import "github.com/abadojack/whatlanggo"

// LanguageDetector guesses the ISO 639-1 language of free text.
type LanguageDetector interface {
	Detect(text string) (code string, ok bool)
}

// WhatlangDetector detects languages with whatlanggo. Unreliable guesses are
// reported as not detected.
type WhatlangDetector struct{}

// Detect implements LanguageDetector.
func (WhatlangDetector) Detect(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", false
	}
	code := info.Lang.Iso6391()
	return code, code != ""
}
