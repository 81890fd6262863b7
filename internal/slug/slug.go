// Пакет slug — преобразование имён файлов в URL-безопасные slug.
//
// Normalize делит имя по последней точке: часть до точки превращается в slug
// (нижний регистр, транслитерация, только [a-z0-9] и одиночные дефисы),
// расширение сохраняется как есть, включая регистр.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback — slug для имён, в которых не осталось ни одного допустимого символа.
const Fallback = "file"

// translit — буквы, которые не раскладываются NFKD в латиницу.
var translit = map[rune]string{
	'ß': "ss", 'æ': "ae", 'ø': "o", 'œ': "oe", 'ł': "l", 'đ': "d", 'ð': "d", 'þ': "th", 'ı': "i",

	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "kh", 'ц': "ts",
	'ч': "ch", 'ш': "sh", 'щ': "shch", 'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya", 'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

// Normalize возвращает slug базовой части имени и расширение.
// Расширение начинается с последней точки; если точки нет
// или за ней ничего не следует, расширение пустое.
// Пустой slug заменяется на Fallback.
func Normalize(originalName string) (base, ext string) {
	stem := originalName
	if i := strings.LastIndex(originalName, "."); i >= 0 {
		if i < len(originalName)-1 {
			ext = originalName[i:]
		}
		stem = originalName[:i]
	}

	base = Slugify(stem)
	if base == "" {
		base = Fallback
	}
	return base, ext
}

// Slugify превращает строку в slug. Может вернуть пустую строку.
func Slugify(s string) string {
	s = strings.ToLower(s)

	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if repl, ok := translit[r]; ok {
			sb.WriteString(repl)
			continue
		}
		sb.WriteRune(r)
	}

	// NFKD + удаление диакритики: é → e, ﬁ → fi.
	// Chain хранит состояние, поэтому создаётся на каждый вызов.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, sb.String())
	if err != nil {
		folded = sb.String()
	}
	folded = strings.ToLower(folded)

	out := make([]byte, 0, len(folded))
	pendingDash := false
	for i := 0; i < len(folded); i++ {
		c := folded[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if pendingDash && len(out) > 0 {
				out = append(out, '-')
			}
			pendingDash = false
			out = append(out, c)
			continue
		}
		pendingDash = true
	}
	return string(out)
}
