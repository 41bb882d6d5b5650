package prompt

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when a language id cannot be resolved.
const DefaultLanguage = "en"

// storefrontLanguages maps Shopware language ids to ISO codes.
var storefrontLanguages = map[string]string{
	"3a5d46e063ae41cd8afa317b08039387": "en",
	"028ef8a4e2b14f50b3d92fc5998e618f": "it",
	"704bb3d0d1b94fffbca47bb9d09befc7": "es",
	"2fbb5fe2e29a4d70aa5854ce7ce3e20b": "de",
	"084a93e951724a22bdd1cf7f723a0b43": "de",
	"eb7b825fcdab409a97ee2da691f954b4": "de",
	"f9976804849247b3844fdeeb2c0a8066": "fr",
	"777c3dadc7a74fd9bc13db9a3091dfbe": "nl",
}

var (
	supported = []language.Tag{language.English, language.German}
	matcher   = language.NewMatcher(supported)
)

// Resolve maps a storefront language id or a BCP 47 tag ("de-DE") to a template language.
func Resolve(languageID string) string {
	id := strings.ToLower(strings.TrimSpace(languageID))
	if id == "" {
		return DefaultLanguage
	}
	if code, ok := storefrontLanguages[id]; ok {
		id = code
	}
	tag, err := language.Parse(id)
	if err != nil {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return DefaultLanguage
	}
	base, _ := supported[idx].Base()
	return base.String()
}

// ISOCode returns the ISO code for a storefront language id, without restricting to template languages.
func ISOCode(languageID string) string {
	id := strings.ToLower(strings.TrimSpace(languageID))
	if code, ok := storefrontLanguages[id]; ok {
		return code
	}
	if tag, err := language.Parse(id); err == nil {
		base, _ := tag.Base()
		return base.String()
	}
	return DefaultLanguage
}
