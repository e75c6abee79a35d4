package command

import (
	"fmt"
	"sync"
)

// Store is the short-lived rendezvous between rule validation and handler
// invocation. Entries are keyed by (chat, message) so concurrent unrelated
// commands never collide, and are deleted on first consumption.
type Store struct {
	mu   sync.Mutex
	args map[string]Args
}

// NewStore constructs an empty argument store.
func NewStore() *Store {
	return &Store{args: make(map[string]Args)}
}

func storeKey(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

// Put stashes parsed arguments for the given origin, replacing any previous
// entry for the same key.
func (s *Store) Put(chatID int64, messageID int, args Args) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.args[storeKey(chatID, messageID)] = args
}

// Consume removes and returns the arguments stashed for the origin. The
// second return value is false when nothing is stored, including on repeat
// consumption.
func (s *Store) Consume(chatID int64, messageID int) (Args, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := storeKey(chatID, messageID)
	args, ok := s.args[key]
	if ok {
		delete(s.args, key)
	}
	return args, ok
}

// Len reports the number of pending entries, for diagnostics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.args)
}
