package repositories

import (
	"fmt"
	"sync"
)

// Key layout in Badger:
//
//	room:{roomId}            -> Room aggregate (JSON)
//	evseq:{roomId}           -> last allocated event ID (8-byte big-endian)
//	event:{roomId}:{id pad}  -> one Event (JSON)
//
// The 10-digit zero padding keeps events in ID order under Badger's
// lexicographical iteration, the same trick as padding timestamps in
// sortable message keys.
func roomKey(roomID string) []byte {
	return []byte("room:" + roomID)
}

func seqKey(roomID string) []byte {
	return []byte("evseq:" + roomID)
}

func eventPrefix(roomID string) []byte {
	return []byte("event:" + roomID + ":")
}

func eventKey(roomID string, id int64) []byte {
	return []byte(fmt.Sprintf("event:%s:%010d", roomID, id))
}

// KeyedMutex serializes writers per room while leaving different rooms free
// to proceed in parallel. Locks are created on first use and never removed.
//
// One instance must be shared by every repository writing to the same store:
// an aggregate write and an event append on the same room both touch the
// room key, and holding different locks would let Badger's conflict
// detection abort one of the otherwise valid commits.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns it so callers can
// `defer locks.Lock(roomID).Unlock()`.
func (k *KeyedMutex) Lock(key string) *sync.Mutex {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m
}
