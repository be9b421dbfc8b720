// Package warmup holds the pure warmup-scheduling decisions: template pool
// construction, counterpart selection via Fisher-Yates shuffle, and
// thread-depth planning. The tick loop that drives a Redis queue and
// a store sits in worker/warmup_worker.go; everything here is a plain
// function of its inputs.
package warmup

import (
	"fmt"

	"outreachengine/quota"
)

// Template is one synthetic-conversation leg. Subject is empty for every
// leg except main — reply/continuation/closer subjects are re-derived from
// the initial message with an "Re: " prefix at send time.
type Template struct {
	Type    quota.WarmupTemplateType
	Subject string
	Body    string
}

// Every body must contain {{firstName|there}} and end with
// {{senderFirstName}}; none may hardcode a greeting name.
const bodySuffix = "\n\n{{senderFirstName}}"

var mainOpeners = []string{
	"Hi {{firstName|there}},\n\nHope your week is off to a good start.",
	"Hey {{firstName|there}},\n\nIt's been a while — thought I'd reach out.",
	"Hi {{firstName|there}},\n\nQuick note to say hello.",
	"Hello {{firstName|there}},\n\nI was thinking about our last chat.",
	"Hi {{firstName|there}},\n\nHope this finds you well.",
	"Hey {{firstName|there}},\n\nJust wanted to check in.",
	"Hi {{firstName|there}},\n\nCatching up on messages and wanted to reach out.",
}

var mainMiddles = []string{
	"Nothing urgent on my end — just wanted to stay in touch.",
	"I came across something that reminded me of you.",
	"I've been meaning to follow up for a bit.",
	"No particular reason for writing, just a friendly hello.",
	"Wanted to see how things have been going on your side.",
	"Been a busy stretch, but wanted to take a moment for this.",
	"Figured it was a good time to reconnect.",
	"Hope the new quarter is treating you well.",
	"Wanted to keep the conversation going.",
	"Thought of reaching out before the week gets away from me.",
	"Let me know if anything's new on your end.",
	"Always good to keep these threads alive.",
	"Wanted to share a quick hello before the weekend.",
	"Curious how your projects are progressing.",
	"Nothing important, just wanted to say hi.",
}

var mainSubjects = []string{
	"Quick hello",
	"Checking in",
	"Following up",
	"Thought of you",
	"Staying in touch",
	"A quick note",
	"Catching up",
}

var replyOpeners = []string{
	"Thanks for writing, {{firstName|there}} — good to hear from you.",
	"Appreciate the note, {{firstName|there}}.",
	"Hi {{firstName|there}}, thanks for getting back to me.",
	"Good to hear from you, {{firstName|there}}.",
	"Hey {{firstName|there}}, thanks for the reply.",
}

var replyMiddles = []string{
	"Things have been steady on my end, nothing too exciting.",
	"Glad to keep this conversation going.",
	"All is well here, hope the same for you.",
	"Appreciate you taking the time to respond.",
	"Good timing, I was just thinking about this.",
	"That lines up with what I was expecting.",
	"Makes sense — appreciate the context.",
	"Sounds about right from where I'm sitting.",
	"Noted, thanks for the quick turnaround.",
	"That's helpful to know, thanks.",
}

var continuationOpeners = []string{
	"Following up once more, {{firstName|there}}.",
	"One more thought on this, {{firstName|there}}.",
	"Circling back quickly, {{firstName|there}}.",
	"Adding a bit more context here, {{firstName|there}}.",
	"Just a quick follow-up, {{firstName|there}}.",
	"Coming back to this thread, {{firstName|there}}.",
}

var continuationMiddles = []string{
	"Wanted to add one more detail before we wrap up.",
	"Still on the same page as before.",
	"Nothing new to add, just keeping the thread warm.",
	"A small update since we last spoke.",
	"Wanted to make sure this didn't get lost.",
}

var closerOpeners = []string{
	"Thanks again for the exchange, {{firstName|there}}.",
	"This has been a good conversation, {{firstName|there}}.",
	"Appreciate you taking the time, {{firstName|there}}.",
	"Good talking with you, {{firstName|there}}.",
}

var closerMiddles = []string{
	"I'll leave it here for now — talk again soon.",
	"No need to reply further, just wanted to close the loop.",
	"That wraps it up on my end, thanks again.",
	"All set on my side — appreciate the back and forth.",
	"Wrapping up here, take care until next time.",
}

func buildBody(opener, middle string) string {
	return opener + "\n\n" + middle + bodySuffix
}

func combine(n int, build func(i int) Template) []Template {
	out := make([]Template, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, build(i))
	}
	return out
}

// MainPool returns the 105 "main" (initial) warmup templates, each with a
// plain-text subject and a body ending in {{senderFirstName}}.
func MainPool() []Template {
	const n = 105
	return combine(n, func(i int) Template {
		opener := mainOpeners[i%len(mainOpeners)]
		middle := mainMiddles[i%len(mainMiddles)]
		subject := mainSubjects[i%len(mainSubjects)]
		if variant := i / len(mainSubjects); variant > 0 {
			subject = fmt.Sprintf("%s (%d)", subject, variant+1)
		}
		return Template{Type: quota.TemplateMain, Subject: subject, Body: buildBody(opener, middle)}
	})
}

// ReplyPool returns the 50 "reply" templates. Subject is always empty —
// it is re-derived from the thread's initial subject at send time.
func ReplyPool() []Template {
	const n = 50
	return combine(n, func(i int) Template {
		opener := replyOpeners[i%len(replyOpeners)]
		middle := replyMiddles[i%len(replyMiddles)]
		return Template{Type: quota.TemplateReply, Body: buildBody(opener, middle)}
	})
}

// ContinuationPool returns the 30 "continuation" templates.
func ContinuationPool() []Template {
	const n = 30
	return combine(n, func(i int) Template {
		opener := continuationOpeners[i%len(continuationOpeners)]
		middle := continuationMiddles[i%len(continuationMiddles)]
		return Template{Type: quota.TemplateContinuation, Body: buildBody(opener, middle)}
	})
}

// CloserPool returns the 20 "closer" templates.
func CloserPool() []Template {
	const n = 20
	return combine(n, func(i int) Template {
		opener := closerOpeners[i%len(closerOpeners)]
		middle := closerMiddles[i%len(closerMiddles)]
		return Template{Type: quota.TemplateCloser, Body: buildBody(opener, middle)}
	})
}

// PoolFor returns the template pool for a leg type.
func PoolFor(typ quota.WarmupTemplateType) []Template {
	switch typ {
	case quota.TemplateMain:
		return MainPool()
	case quota.TemplateReply:
		return ReplyPool()
	case quota.TemplateContinuation:
		return ContinuationPool()
	case quota.TemplateCloser:
		return CloserPool()
	default:
		return nil
	}
}
