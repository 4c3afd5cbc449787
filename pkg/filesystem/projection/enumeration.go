package projection

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Enumeration is the cursor state of one open directory listing. The
// projection service may interleave reads of the same session with a
// restart flag, which resets the cursor and replaces the saved search
// expression.
//
// Enumerations are not thread-safe; the projection service serializes
// operations per session id.
type Enumeration struct {
	entries []DirectoryEntry

	searchExpression string
	nextIndex        int
}

// NewEnumeration creates an Enumeration for a directory listing, with
// the cursor at the first entry and the search expression matching
// everything.
func NewEnumeration(entries []DirectoryEntry) *Enumeration {
	return &Enumeration{
		entries:          entries,
		searchExpression: "*",
	}
}

// Restart resets the cursor and saves a new search expression. An
// empty expression matches everything.
func (e *Enumeration) Restart(searchExpression string) {
	if searchExpression == "" {
		searchExpression = "*"
	}
	e.searchExpression = searchExpression
	e.nextIndex = 0
}

// SearchExpression returns the saved search expression.
func (e *Enumeration) SearchExpression() string {
	return e.searchExpression
}

// CopyEntries writes pending entries that match the saved search
// expression into the buffer, advancing the cursor past every entry
// that fit. It fails with StatusErrInsufficientBuffer only if not even
// the first pending entry fit.
func (e *Enumeration) CopyEntries(buffer DirectoryEntryBuffer) Status {
	added := false
	for e.nextIndex < len(e.entries) {
		entry := e.entries[e.nextIndex]
		if !matchFileName(e.searchExpression, entry.Name) {
			e.nextIndex++
			continue
		}
		if !buffer.AddEntry(entry.Name, entry.IsDirectory, entry.SizeBytes) {
			if !added {
				return StatusErrInsufficientBuffer
			}
			return StatusOK
		}
		added = true
		e.nextIndex++
	}
	return StatusOK
}

// matchFileName implements the wildcard semantics of directory
// enumeration: case-insensitive, with '*' matching any run of
// characters and '?' matching exactly one.
func matchFileName(pattern, name string) bool {
	return matchFold([]rune(strings.ToLower(pattern)), []rune(strings.ToLower(name)))
}

func matchFold(pattern, name []rune) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for i := 0; i <= len(name); i++ {
				if matchFold(pattern[1:], name[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(name) == 0 {
				return false
			}
		default:
			if len(name) == 0 || pattern[0] != name[0] {
				return false
			}
		}
		pattern = pattern[1:]
		name = name[1:]
	}
	return len(name) == 0
}

// EnumerationRegistry tracks open enumeration sessions, keyed by the
// opaque 128-bit session id supplied by the projection service.
type EnumerationRegistry struct {
	lock     sync.Mutex
	sessions map[uuid.UUID]*Enumeration
}

// NewEnumerationRegistry creates an EnumerationRegistry with no open
// sessions.
func NewEnumerationRegistry() *EnumerationRegistry {
	return &EnumerationRegistry{
		sessions: map[uuid.UUID]*Enumeration{},
	}
}

// Insert registers a new session. Reusing a live session id replaces
// the previous session, as the projection service may retry a start
// callback whose completion was lost.
func (er *EnumerationRegistry) Insert(sessionID uuid.UUID, e *Enumeration) {
	er.lock.Lock()
	defer er.lock.Unlock()

	er.sessions[sessionID] = e
}

// Find returns the session for an id. An unknown id is a client error,
// reported as InvalidArgument.
func (er *EnumerationRegistry) Find(sessionID uuid.UUID) (*Enumeration, error) {
	er.lock.Lock()
	defer er.lock.Unlock()

	e, ok := er.sessions[sessionID]
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "Enumeration session %s does not exist", sessionID)
	}
	return e, nil
}

// Remove drops a session. Removing an unknown session succeeds, as the
// projection service may retry an end callback.
func (er *EnumerationRegistry) Remove(sessionID uuid.UUID) {
	er.lock.Lock()
	defer er.lock.Unlock()

	delete(er.sessions, sessionID)
}
