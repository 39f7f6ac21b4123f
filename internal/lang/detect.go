// Package lang guesses the language of card text so units already written
// in the target language can be left alone.
package lang

import (
	"strings"
	"unicode/utf8"

	wlg "github.com/abadojack/whatlanggo"
)

// MinRunes is the shortest text worth running detection on
const MinRunes = 24

// MinConfidence is the confidence IsLanguage callers use by default
const MinConfidence = 0.5

// byCode maps ISO-639-1 codes to whatlanggo languages
var byCode = func() map[string]wlg.Lang {
	m := make(map[string]wlg.Lang, len(wlg.Langs))
	for l := range wlg.Langs {
		if code := l.Iso6391(); code != "" {
			m[code] = l
		}
	}
	return m
}()

// DetectCode returns the ISO-639-1 code and confidence in [0,1] of the best
// guess over all languages. Short or undetectable text returns "und" and 0.
func DetectCode(text string) (code string, conf float64) {
	return detect(text, wlg.Options{})
}

// DetectAmong is DetectCode restricted to the given language tags. Unknown
// tags are ignored; with none left it returns "und".
func DetectAmong(text string, tags ...string) (code string, conf float64) {
	opts := wlg.Options{Whitelist: make(map[wlg.Lang]bool)}
	for _, tag := range tags {
		if l, ok := byCode[BaseTag(tag)]; ok {
			opts.Whitelist[l] = true
		}
	}
	if len(opts.Whitelist) == 0 {
		return "und", 0
	}
	return detect(text, opts)
}

func detect(text string, opts wlg.Options) (string, float64) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinRunes {
		return "und", 0
	}
	info := wlg.DetectWithOptions(text, opts)
	iso6391 := info.Lang.Iso6391()
	if info.Lang < 0 || iso6391 == "" {
		return "und", 0
	}
	return iso6391, info.Confidence
}

// BaseTag strips the region from a BCP-47 tag: "pt-BR" becomes "pt"
func BaseTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return tag[:i]
	}
	return tag
}

// IsLanguage reports whether text reads as target rather than source with
// at least minConf confidence
func IsLanguage(text, source, target string, minConf float64) bool {
	code, conf := DetectAmong(text, source, target)
	return code != "und" && code == BaseTag(target) && conf >= minConf
}
