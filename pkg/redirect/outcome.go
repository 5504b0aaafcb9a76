package redirect

// outcomeKind discriminates the Outcome variants.
type outcomeKind int

const (
	kindContinue outcomeKind = iota
	kindRedirect
	kindNotFound
)

// Outcome is the result of resolving a request path against the rule
// table. It is an explicit variant returned up the call chain rather
// than a sentinel error: redirecting is ordinary control flow here,
// not a failure.
type Outcome struct {
	kind   outcomeKind
	url    string
	status int
}

// Redirect produces an outcome instructing the handler to respond with
// the given Location and status.
func Redirect(url string, status int) Outcome {
	return Outcome{kind: kindRedirect, url: url, status: status}
}

// Continue signals that the path is outside the rule table's scope and
// the next handler should take over.
func Continue() Outcome {
	return Outcome{kind: kindContinue}
}

// NotFound signals that the path is within scope but no rule matches.
func NotFound() Outcome {
	return Outcome{kind: kindNotFound}
}

// IsRedirect reports whether the outcome carries a redirect, returning
// its destination and status when it does.
func (o Outcome) IsRedirect() (url string, status int, ok bool) {
	if o.kind != kindRedirect {
		return "", 0, false
	}
	return o.url, o.status, true
}

// IsContinue reports whether the next handler should take over.
func (o Outcome) IsContinue() bool {
	return o.kind == kindContinue
}

// IsNotFound reports whether no rule matched.
func (o Outcome) IsNotFound() bool {
	return o.kind == kindNotFound
}
