// Package tracking builds and validates open-pixel and click-redirect
// URLs and injects them into outgoing HTML at send time, per the
// campaign's track_opens / track_clicks settings. The token is a keyed
// hash of the message ID, so the tracking endpoints can validate it
// without a per-email token row.
package tracking

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Token derives the per-message tracking token from the message ID and the
// process secret.
func Token(messageID, secret string) string {
	hash := sha256.Sum256([]byte(messageID + secret))
	return base64.URLEncoding.EncodeToString(hash[:])[:20]
}

// ValidToken reports whether token matches the one derived for messageID.
func ValidToken(messageID, token, secret string) bool {
	expected := Token(messageID, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

// OpenPixelURL builds the tracking-pixel URL for a message.
func OpenPixelURL(baseURL, messageID, secret string) string {
	return fmt.Sprintf("%s/track/open/%s/%s", baseURL, url.PathEscape(messageID), Token(messageID, secret))
}

// ClickURL wraps an original link destination in the click-redirect
// endpoint.
func ClickURL(baseURL, messageID, originalURL, secret string) string {
	return fmt.Sprintf("%s/track/click/%s/%s?url=%s",
		baseURL, url.PathEscape(messageID), Token(messageID, secret), url.QueryEscape(originalURL))
}

// Inject appends the open pixel and rewrites anchor hrefs through the
// click redirect, per the campaign's tracking settings.
func Inject(html, baseURL, messageID, secret string, trackOpens, trackClicks bool) string {
	if trackClicks {
		html = wrapLinks(html, baseURL, messageID, secret)
	}
	if trackOpens {
		pixel := fmt.Sprintf(`<img src="%s" alt="" width="1" height="1" style="display:none">`, OpenPixelURL(baseURL, messageID, secret))
		html += pixel
	}
	return html
}

func wrapLinks(html, baseURL, messageID, secret string) string {
	const startTag = `<a href="`
	const endTag = `"`
	offset := 0

	for {
		startIdx := strings.Index(html[offset:], startTag)
		if startIdx == -1 {
			break
		}
		startIdx += offset + len(startTag)

		endIdx := strings.Index(html[startIdx:], endTag)
		if endIdx == -1 {
			break
		}
		endIdx += startIdx

		originalURL := html[startIdx:endIdx]
		if strings.HasPrefix(originalURL, baseURL) {
			offset = endIdx
			continue
		}
		trackedURL := ClickURL(baseURL, messageID, originalURL, secret)
		html = html[:startIdx] + trackedURL + html[endIdx:]
		offset = startIdx + len(trackedURL)
	}

	return html
}
