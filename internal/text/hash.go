package text

import (
	"crypto/md5" // #nosec G501 -- content fingerprint, not a security boundary
	"encoding/hex"
)

// ContentHash is the chunk identifier: the lowercase hex MD5 of the chunk content.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
