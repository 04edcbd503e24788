package keytemplate

import (
	"fmt"

	"golang.org/x/text/language"
)

// LocaleVars derives the locale tokens for a Crowdin language id such as
// "pt-BR" or "uk". The region-qualified forms fall back to the bare
// language code when the id carries no explicit region.
func LocaleVars(locale string) (Vars, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
	}
	base, _ := tag.Base()
	code := base.String()

	underscore, android := code, code
	if region, conf := tag.Region(); conf == language.Exact {
		underscore = code + "_" + region.String()
		android = code + "-r" + region.String()
	}

	return Vars{
		TokenLocale:               locale,
		TokenTwoLettersCode:       code,
		TokenLocaleWithUnderscore: underscore,
		TokenAndroidCode:          android,
	}, nil
}

// ValidLocale reports whether locale is a well-formed BCP 47 tag.
func ValidLocale(locale string) bool {
	_, err := language.Parse(locale)
	return err == nil
}
