package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

// Undefined is the ISO 639-2 code for an unknown language.
const Undefined = "und"

type entry struct {
	code2   string
	code3   string
	alt3    string // bibliographic variant, e.g. "fre" for "fra"
	display string
}

var languages = []entry{
	{"en", "eng", "", "English"},
	{"es", "spa", "", "Spanish"},
	{"fr", "fra", "fre", "French"},
	{"de", "deu", "ger", "German"},
	{"it", "ita", "", "Italian"},
	{"pt", "por", "", "Portuguese"},
	{"ja", "jpn", "", "Japanese"},
	{"ko", "kor", "", "Korean"},
	{"zh", "zho", "chi", "Chinese"},
	{"ru", "rus", "", "Russian"},
	{"ar", "ara", "", "Arabic"},
	{"hi", "hin", "", "Hindi"},
	{"bn", "ben", "", "Bengali"},
	{"nl", "nld", "dut", "Dutch"},
	{"sv", "swe", "", "Swedish"},
	{"da", "dan", "", "Danish"},
	{"no", "nor", "", "Norwegian"},
	{"fi", "fin", "", "Finnish"},
}

var index = func() map[string]*entry {
	m := make(map[string]*entry, len(languages)*4)
	for i := range languages {
		e := &languages[i]
		m[e.code2] = e
		m[e.code3] = e
		if e.alt3 != "" {
			m[e.alt3] = e
		}
		m[strings.ToLower(e.display)] = e
	}
	return m
}()

func lookup(code string) *entry {
	return index[strings.ToLower(strings.TrimSpace(code))]
}

// ToISO3 converts a language code, name, or BCP 47 tag to ISO 639-2.
// Unrecognised three-letter codes pass through; anything else unrecognised
// becomes "und".
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Undefined {
		return Undefined
	}
	if e := lookup(code); e != nil {
		return e.code3
	}
	if tag, err := xlang.Parse(code); err == nil {
		if base, conf := tag.Base(); conf == xlang.Exact {
			if iso3 := base.ISO3(); iso3 != "" {
				return iso3
			}
		}
	}
	if len(code) == 3 {
		return code
	}
	return Undefined
}

// Matches reports whether tag names the same language as target. An
// undefined tag never matches.
func Matches(tag, target string) bool {
	a := ToISO3(tag)
	if a == Undefined {
		return false
	}
	return a == ToISO3(target)
}

// DisplayName returns a human-readable language name for any recognized code.
// Returns "Unknown" for empty input, or the uppercased code for unrecognized input.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// ExtractFromTags extracts the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
