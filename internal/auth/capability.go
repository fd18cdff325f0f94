package auth

// Capability is the access level a route requires.
type Capability int

const (
	// AdminOnly: machine and user record management.
	AdminOnly Capability = iota
	// ReadFleet: list machines, read comments and history.
	ReadFleet
	// WriteTelemetry: report a speed reading. Machines only, and a
	// machine can only ever write to itself — the target id is derived
	// from its own credential, never accepted as input.
	WriteTelemetry
	// WriteComment: leave a maintenance comment.
	WriteComment
)

// Allows reports whether the identity satisfies the capability.
func (id Identity) Allows(cap Capability) bool {
	switch cap {
	case AdminOnly:
		return id.Kind == KindAdmin
	case ReadFleet, WriteComment:
		return id.Kind == KindAdmin || id.Kind == KindUser
	case WriteTelemetry:
		return id.Kind == KindMachine
	}
	return false
}

// CommentAuthor returns the username a comment is attributed to. The
// bootstrap admin writes as "admin".
func (id Identity) CommentAuthor() string {
	if id.Kind == KindAdmin {
		return "admin"
	}
	return id.Username
}
