package domain

import (
	"strconv"
	"unicode/utf16"
)

// ContentHash calcule le hash glissant 32 bits du texte visible d'une page:
// h = h*31 + c sur les unités UTF-16, avec débordement signé.
// Le résultat reste comparable avec les hashes déjà stockés par l'extension.
func ContentHash(text string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(text)) {
		h = (h << 5) - h + int32(c)
	}
	return strconv.FormatInt(int64(h), 10)
}
