package locale

import (
	_ "embed"
	"log"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

const DefaultLocale = "en"

// Order matters: the first entry is the fallback when matching fails.
var supported = []language.Tag{
	language.MustParse("en"),
	language.MustParse("en-GB"),
	language.MustParse("es"),
	language.MustParse("de"),
	language.MustParse("fr"),
	language.MustParse("pt"),
}

var matcher = language.NewMatcher(supported)

//go:embed labels.yaml
var labelsYAML []byte

var labels map[string]map[string]string

func init() {
	if err := yaml.Unmarshal(labelsYAML, &labels); err != nil {
		log.Fatalf("error parsing embedded locale catalog: %v", err)
	}
}

// IsSupported reports whether the tag is one of the locales the catalog
// carries, after canonicalization.
func IsSupported(tag string) bool {
	parsed, err := language.Parse(tag)
	if err != nil {
		return false
	}
	for _, s := range supported {
		if s == parsed {
			return true
		}
	}
	return false
}

// Negotiate picks the best supported locale. An explicit per-user preference
// wins; otherwise the Accept-Language header is matched; otherwise the
// default.
func Negotiate(preference, acceptLanguage string) string {
	if preference != "" {
		if tag, err := language.Parse(preference); err == nil {
			matched, _, _ := matcher.Match(tag)
			return canonical(matched)
		}
	}

	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			matched, _, _ := matcher.Match(tags...)
			return canonical(matched)
		}
	}

	return DefaultLocale
}

// canonical maps a matcher result back onto one of the supported tag names.
// The matcher can return refined tags (e.g. es-u-rg-eszzzz) that are not
// usable as catalog keys.
func canonical(matched language.Tag) string {
	base := matched.String()
	if _, ok := labels[base]; ok {
		return base
	}

	b, _ := matched.Base()
	if _, ok := labels[b.String()]; ok {
		return b.String()
	}

	return DefaultLocale
}

// Label returns the localized label for a snooze option key, falling back to
// the default locale when either the locale or the key is unknown.
func Label(loc, key string) string {
	if m, ok := labels[loc]; ok {
		if label, ok := m[key]; ok {
			return label
		}
	}
	if label, ok := labels[DefaultLocale][key]; ok {
		return label
	}
	return key
}
