package warmup

import (
	"strings"
	"testing"
)

func TestPoolSizes(t *testing.T) {
	cases := []struct {
		name string
		pool []Template
		want int
	}{
		{"main", MainPool(), 105},
		{"reply", ReplyPool(), 50},
		{"continuation", ContinuationPool(), 30},
		{"closer", CloserPool(), 20},
	}
	for _, c := range cases {
		if len(c.pool) != c.want {
			t.Errorf("%s pool: got %d templates, want %d", c.name, len(c.pool), c.want)
		}
	}
}

func TestTemplatesContainFallbackAndEndWithSenderFirstName(t *testing.T) {
	all := append(append(append(MainPool(), ReplyPool()...), ContinuationPool()...), CloserPool()...)
	for _, tmpl := range all {
		if !strings.Contains(tmpl.Body, "{{firstName|there}}") {
			t.Errorf("%s template missing {{firstName|there}}: %q", tmpl.Type, tmpl.Body)
		}
		if !strings.HasSuffix(tmpl.Body, "{{senderFirstName}}") {
			t.Errorf("%s template does not end with {{senderFirstName}}: %q", tmpl.Type, tmpl.Body)
		}
	}
}

func TestOnlyMainHasSubject(t *testing.T) {
	for _, tmpl := range MainPool() {
		if tmpl.Subject == "" {
			t.Fatal("main template must have a non-empty subject")
		}
	}
	for _, pool := range [][]Template{ReplyPool(), ContinuationPool(), CloserPool()} {
		for _, tmpl := range pool {
			if tmpl.Subject != "" {
				t.Fatalf("%s template must have an empty subject, got %q", tmpl.Type, tmpl.Subject)
			}
		}
	}
}
