package voice

import (
	"fmt"
	"regexp"
	"strings"
)

// Sentinel pause tokens consumed by non-SSML backends.
const (
	pauseToken      = "<pause>"
	shortPauseToken = "<pause_corta>"
)

var digitWords = map[string]string{
	"0": "cero", "1": "uno", "2": "dos", "3": "tres", "4": "cuatro",
	"5": "cinco", "6": "seis", "7": "siete", "8": "ocho", "9": "nueve",
}

// abbreviations expands common titles and units; acronyms are spelled out.
var abbreviations = []struct{ abbr, full string }{
	{"Dr.", "Doctor"},
	{"Dra.", "Doctora"},
	{"Sr.", "Señor"},
	{"Sra.", "Señora"},
	{"Srta.", "Señorita"},
	{"Prof.", "Profesor"},
	{"No.", "Número"},
	{"Tel.", "Teléfono"},
	{"Av.", "Avenida"},
	{"NASA", "N A S A"},
	{"ONU", "O N U"},
}

var emphasisWords = []string{"importante", "urgente", "atención", "cuidado", "peligro"}

var (
	singleDigitRe   = regexp.MustCompile(`\b\d\b`)
	sentenceBreakRe = regexp.MustCompile(`([.!?]) `)
	commaBreakRe    = regexp.MustCompile(`, `)
	semicolonRe     = regexp.MustCompile(`;`)
	emphasisRes     = buildEmphasisRes()
)

func buildEmphasisRes() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(emphasisWords))
	for _, w := range emphasisWords {
		res[w] = regexp.MustCompile(`\b` + w + `\b`)
	}
	return res
}

// Normalize prepares text for synthesis: single digits become words, known
// abbreviations are expanded, and pauses are marked up, either as SSML
// breaks with keyword emphasis or as plain sentinel tokens for backends
// without SSML support.
func Normalize(text string, ssml bool) string {
	if text == "" {
		return text
	}

	text = singleDigitRe.ReplaceAllStringFunc(text, func(d string) string {
		if w, ok := digitWords[d]; ok {
			return w
		}
		return d
	})

	for _, a := range abbreviations {
		text = strings.ReplaceAll(text, a.abbr, a.full)
	}

	if ssml {
		text = sentenceBreakRe.ReplaceAllString(text, `$1 <break time="500ms"/> `)
		text = commaBreakRe.ReplaceAllString(text, `, <break time="200ms"/> `)
		text = semicolonRe.ReplaceAllString(text, `;<break time="300ms"/> `)
		for word, re := range emphasisRes {
			text = re.ReplaceAllString(text, `<emphasis level="strong">`+word+`</emphasis>`)
		}
		return text
	}

	text = strings.ReplaceAll(text, ". ", ". "+pauseToken+" ")
	text = strings.ReplaceAll(text, "? ", "? "+pauseToken+" ")
	text = strings.ReplaceAll(text, "! ", "! "+pauseToken+" ")
	text = strings.ReplaceAll(text, ", ", ", "+shortPauseToken+" ")
	return text
}

// ToSSML wraps normalized text in a speak/prosody envelope for SSML backends.
// Rate 1.0 maps to 100%, pitch is in semitones.
func ToSSML(text string, p Prosody, language string) string {
	rate := int(p.Rate * 100)
	return fmt.Sprintf(
		`<speak version="1.0" xml:lang="%s"><prosody rate="%d%%" pitch="%+.0fst" volume="%.0f%%">%s</prosody></speak>`,
		language, rate, p.Pitch, p.Volume*100, text)
}

// stripSentinels removes pause tokens, for backends that receive sentinel
// text but play it through an external command without a pause interpreter.
func stripSentinels(text string) string {
	text = strings.ReplaceAll(text, pauseToken, "")
	text = strings.ReplaceAll(text, shortPauseToken, "")
	return strings.Join(strings.Fields(text), " ")
}
