package product

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// transliterations は分解しても基本文字にならない文字のラテン文字への置き換え表。
// キーは小文字。ギリシャ文字とキリル文字はnpmのslugifyの対応表に合わせる。
var transliterations = map[rune]string{
	'ß': "ss", 'æ': "ae", 'œ': "oe", 'ø': "o", 'đ': "d", 'ł': "l", 'þ': "th",
	'&': "and",

	// ギリシャ文字
	'α': "a", 'β': "b", 'γ': "g", 'δ': "d", 'ε': "e", 'ζ': "z", 'η': "h", 'θ': "8",
	'ι': "i", 'κ': "k", 'λ': "l", 'μ': "m", 'ν': "n", 'ξ': "3", 'ο': "o", 'π': "p",
	'ρ': "r", 'σ': "s", 'ς': "s", 'τ': "t", 'υ': "y", 'φ': "f", 'χ': "x", 'ψ': "ps",
	'ω': "w",

	// キリル文字
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo", 'ж': "zh",
	'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m", 'н': "n", 'о': "o",
	'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "c",
	'ч': "ch", 'ш': "sh", 'щ': "sh", 'ъ': "u", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu",
	'я': "ya", 'є': "ye", 'і': "i", 'ї': "yi", 'ґ': "g",
}

// Slugify は文字列をURLに使えるスラッグに変換する。
// ギリシャ文字とキリル文字を翻字し、発音記号を除去して英数字以外を取り除き、
// 空白とダッシュの並びを"-"で連結した小文字を返す。
func Slugify(s string) string {
	// й・ёなどは分解すると別の文字になるため、翻字を先に行う
	var t strings.Builder
	for _, r := range strings.ToLower(s) {
		if rep, ok := transliterations[r]; ok {
			t.WriteString(rep)
			continue
		}
		t.WriteRune(r)
	}

	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		t.String(),
	)
	if err != nil {
		folded = t.String()
	}

	var b strings.Builder
	for _, r := range folded {
		// άなどは結合文字を除去した後に翻字できる
		if rep, ok := transliterations[r]; ok {
			b.WriteString(rep)
			continue
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case unicode.Is(unicode.Pd, r), unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), "-")
}
