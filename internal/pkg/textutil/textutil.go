package textutil

import (
	"regexp"
	"strings"
)

// Accented and special characters replaced in file and archive names,
// aligned by index with their unaccented replacements.
var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U",
	"à", "a", "è", "e", "ì", "i", "ò", "o", "ù", "u",
	"À", "A", "È", "E", "Ì", "I", "Ò", "O", "Ù", "U",
	"â", "a", "ê", "e", "î", "i", "ô", "o", "û", "u",
	"Â", "A", "Ê", "E", "Î", "I", "Ô", "O", "Û", "U",
	"ä", "a", "ë", "e", "ï", "i", "ö", "o", "ü", "u",
	"Ä", "A", "Ë", "E", "Ï", "I", "Ö", "O", "Ü", "U",
	"ã", "a", "õ", "o", "Ã", "A", "Õ", "O",
	"ñ", "n", "Ñ", "N", "ç", "c", "Ç", "C",
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

var unsafeFilenameRe = regexp.MustCompile(`[\\/:*?"<>|#%&{}$!'@+=\x60]+`)

// Transliterate replaces accented characters with their unaccented
// ASCII equivalents.
func Transliterate(s string) string {
	return accentReplacer.Replace(s)
}

// StripTags removes HTML-ish markup, leaving only the text content.
func StripTags(s string) string {
	return tagRe.ReplaceAllString(s, "")
}

// CleanFilename transliterates accents, drops characters unsafe in file
// names and replaces spaces with underscores.
func CleanFilename(s string) string {
	s = Transliterate(s)
	s = unsafeFilenameRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, " ", "_")
}
