package bot

import "sync"

// pendingStore tracks chats that are mid-way through the credential
// conversation. The scope is deliberately narrow: an entry exists only
// between /update_user and the final password message and is removed
// on completion or /cancel.
type pendingStore struct {
	mu      sync.Mutex
	pending map[int64]pendingState
}

type pendingState struct {
	username     string
	haveUsername bool
}

func newPendingStore() *pendingStore {
	return &pendingStore{pending: map[int64]pendingState{}}
}

// Begin marks the chat as awaiting a username, discarding any earlier
// half-finished conversation.
func (p *pendingStore) Begin(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[chatID] = pendingState{}
}

func (p *pendingStore) State(chatID int64) (pendingState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.pending[chatID]
	return state, ok
}

func (p *pendingStore) SetUsername(chatID int64, username string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[chatID] = pendingState{username: username, haveUsername: true}
}

func (p *pendingStore) Drop(chatID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, chatID)
}
