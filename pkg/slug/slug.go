// Package slug turns user-supplied names into URL and object-key safe
// strings.
package slug

import (
	"path"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// turkish maps the Turkish letters the storefront sees to ASCII. The dotted
// capital I is replaced before lowercasing, which would otherwise leave a
// combining dot behind.
var turkish = strings.NewReplacer(
	"İ", "i", "I", "i",
	"ç", "c", "Ç", "c",
	"ğ", "g", "Ğ", "g",
	"ı", "i",
	"ö", "o", "Ö", "o",
	"ş", "s", "Ş", "s",
	"ü", "u", "Ü", "u",
)

// Generate creates a URL-friendly slug, e.g. "Kadın Giyim" becomes
// "kadin-giyim".
func Generate(name string) string {
	s := strings.ToLower(turkish.Replace(strings.TrimSpace(name)))
	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}

// Filename slugs the base name of an uploaded file and keeps a lowercase
// extension: "Yaz Elbisesi (1).JPG" becomes "yaz-elbisesi-1.jpg". An empty
// base becomes "file".
func Filename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	ext := strings.ToLower(path.Ext(name))
	base := Generate(strings.TrimSuffix(name, path.Ext(name)))
	if base == "" {
		base = "file"
	}
	ext = "." + Generate(strings.TrimPrefix(ext, "."))
	if ext == "." {
		ext = ""
	}
	return base + ext
}
