package dispatch

import "strings"

// pathSafe is the set of bytes left unescaped by EncodePath, beyond
// alphanumerics: the RFC 3986 pchar specials plus the path separator.
// Notably parentheses stay readable, which matters for media filenames.
const pathSafe = "-._~!$&'()*+,;=:@/"

const upperhex = "0123456789ABCDEF"

// EncodePath percent-encodes a file path for use inside a URL while
// preserving path separators and segment-internal pchar characters.
func EncodePath(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case strings.IndexByte(pathSafe, c) >= 0:
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		}
	}
	return b.String()
}

// appendToken appends a token query parameter, joining correctly whether
// or not the URL already carries a query string. An empty token is a no-op.
func appendToken(u, token string) string {
	if token == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "token=" + token
}

// downloadURL builds the conventional direct-download URL for a path on
// the public index address.
func downloadURL(base, path, token string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return appendToken(base+"/d"+EncodePath(path), token)
}
