package page

import "time"

// DefaultLockTTL is how long an idle edit lock keeps other editors out.
const DefaultLockTTL = 5 * time.Minute

// LockHolder returns the editor that currently blocks userID, if any.
//
// The lock is free when no editor is set, when userID already holds it, or
// when lastSaved is older than ttl.  A lock without lastSaved counts as
// expired.
func (p *Page) LockHolder(userID string, now time.Time, ttl time.Duration) (string, bool) {
	editor := Deref(p.CurrentEditor)
	if editor == "" || editor == userID {
		return "", false
	}
	if p.LastSaved == nil || now.Sub(*p.LastSaved) > ttl {
		return "", false
	}
	return editor, true
}
