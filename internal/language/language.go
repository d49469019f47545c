package language

import "strings"

type entry struct {
	code2   string
	code3   string
	alt3    string // bibliographic form, e.g. "ger" for "deu"
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
	{"zh", "zho", "chi", "Chinese"},
	{"ru", "rus", "", "Russian"},
	{"nl", "nld", "dut", "Dutch"},
	{"pl", "pol", "", "Polish"},
	{"sv", "swe", "", "Swedish"},
	{"da", "dan", "", "Danish"},
	{"no", "nor", "", "Norwegian"},
	{"fi", "fin", "", "Finnish"},
}

var byCode map[string]*entry

func init() {
	byCode = make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		byCode[e.code2] = e
		byCode[e.code3] = e
		byCode[strings.ToLower(e.display)] = e
		if e.alt3 != "" {
			byCode[e.alt3] = e
		}
	}
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "\u0000", "")))
}

// ToISO2 returns the ISO 639-1 code for a recognized code or English name.
// Unknown two-letter codes pass through; anything else, including "und",
// yields "".
func ToISO2(code string) string {
	code = normalize(code)
	if e, ok := byCode[code]; ok {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns "English" for "eng", the upper-cased code for
// unrecognized input and "Unknown" for empty or undetermined input.
func DisplayName(code string) string {
	code = normalize(code)
	switch code {
	case "", "und":
		return "Unknown"
	}
	if e, ok := byCode[code]; ok {
		return e.display
	}
	return strings.ToUpper(code)
}

// FromTags returns the first non-empty language tag, lower-cased.
func FromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "lang"} {
		if value := normalize(tags[key]); value != "" {
			return value
		}
	}
	return ""
}
