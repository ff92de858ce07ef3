package userfeed

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nkiryanov/authclient/internal/models"
)

// Feed keeps the latest session user and broadcasts changes.
// Every subscriber channel holds one value: a new publish replaces the unread one,
// so slow readers skip intermediate users and always see the newest
type Feed struct {
	mu          sync.Mutex
	latest      *models.User
	subscribers map[string]chan *models.User
}

func New() *Feed {
	return &Feed{
		subscribers: make(map[string]chan *models.User),
	}
}

// Publish user to every subscriber
func (f *Feed) Publish(u models.User) {
	f.set(&u)
}

// Clear the session user. Subscribers receive nil
func (f *Feed) Clear() {
	f.set(nil)
}

// Latest published user, false if nothing published or feed cleared
func (f *Feed) Latest() (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.latest == nil {
		return models.User{}, false
	}
	return *f.latest, true
}

// Subscribe to user changes. Current user, if any, is delivered right away
func (f *Feed) Subscribe() (<-chan *models.User, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan *models.User, 1)
	if f.latest != nil {
		ch <- copyUser(f.latest)
	}
	f.subscribers[id] = ch

	unsubscribe := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if ch, exists := f.subscribers[id]; exists {
			close(ch)
			delete(f.subscribers, id)
		}
	}

	return ch, unsubscribe
}

func (f *Feed) set(u *models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest = u
	for _, ch := range f.subscribers {
		// Drop unread value, buffer always has room after that
		select {
		case <-ch:
		default:
		}
		ch <- copyUser(u)
	}
}

// Every subscriber gets its own copy
func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
