package archive

import "strings"

const (
	insecurePrefix = "http://"
	securePrefix   = "https://"
)

// UpgradeScheme rewrites an http:// URL to https://. Other values are
// returned unchanged, so applying it twice is the same as applying it once.
func UpgradeScheme(rawURL string) string {
	if len(rawURL) >= len(insecurePrefix) && strings.EqualFold(rawURL[:len(insecurePrefix)], insecurePrefix) {
		return securePrefix + rawURL[len(insecurePrefix):]
	}
	return rawURL
}
