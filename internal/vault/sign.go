package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"
)

// rfc1123GMT matches the Date header format the signing protocol requires.
const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// authHeaders computes the three signed headers for one request. The
// signature string is
//
//	host: <host>\ndate: <date>\n<METHOD> <path> HTTP/1.1
//
// HMAC-SHA256 over the shared secret, base64-encoded, embedded into the
// Authorization parameter list.
func authHeaders(apiKey, apiSecret, host, method, path string, now time.Time) map[string]string {
	date := now.UTC().Format(rfc1123GMT)

	origin := fmt.Sprintf("host: %s\ndate: %s\n%s %s HTTP/1.1", host, date, method, path)

	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(origin))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	authorization := fmt.Sprintf(
		`api_key="%s",algorithm="hmac-sha256",headers="host date request-line",signature="%s"`,
		apiKey, signature,
	)

	return map[string]string{
		"Host":          host,
		"Date":          date,
		"Authorization": authorization,
	}
}
