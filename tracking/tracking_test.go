package tracking

import (
	"strings"
	"testing"
)

const secret = "test-secret"

func TestTokenIsDeterministicAndValidates(t *testing.T) {
	a := Token("<m1@engine>", secret)
	b := Token("<m1@engine>", secret)
	if a != b {
		t.Fatal("token must be deterministic per message ID")
	}
	if !ValidToken("<m1@engine>", a, secret) {
		t.Fatal("derived token must validate")
	}
	if ValidToken("<m2@engine>", a, secret) {
		t.Fatal("token must not validate for a different message ID")
	}
	if ValidToken("<m1@engine>", a, "other-secret") {
		t.Fatal("token must not validate under a different secret")
	}
}

func TestInjectAppendsPixelAndWrapsLinks(t *testing.T) {
	html := `<p>Hi</p><a href="https://example.com/page">link</a>`
	out := Inject(html, "https://track.local", "<m1@engine>", secret, true, true)

	if !strings.Contains(out, `https://track.local/track/open/`) {
		t.Error("expected open pixel URL in output")
	}
	if !strings.Contains(out, `https://track.local/track/click/`) {
		t.Error("expected click redirect URL in output")
	}
	if strings.Contains(out, `href="https://example.com/page"`) {
		t.Error("original href should have been wrapped")
	}
	if !strings.Contains(out, `url=https%3A%2F%2Fexample.com%2Fpage`) {
		t.Error("original URL should survive as an encoded query param")
	}
}

func TestInjectRespectsDisabledFlags(t *testing.T) {
	html := `<a href="https://example.com">x</a>`
	out := Inject(html, "https://track.local", "<m1@engine>", secret, false, false)
	if out != html {
		t.Errorf("with both flags off the body must pass through unchanged, got %q", out)
	}
}
