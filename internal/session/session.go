// Package session keeps open documents in memory. Each session owns one
// document tree plus the editing state around it and serializes access to
// it; the store evicts sessions that have been idle past their TTL.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docedit/internal/docindex"
	"github.com/dgallion1/docedit/internal/ooxml"
	"github.com/dgallion1/docedit/internal/revision"
	"github.com/dgallion1/docedit/internal/textedit"
)

// Session is one open document.
type Session struct {
	mu sync.Mutex

	ID       string `json:"session_id"`
	Filename string `json:"filename"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	pkg     *ooxml.Package
	rev     *revision.Context
	indexer *docindex.Indexer
	edits   int
}

// NewSession opens docx bytes into a session. Empty data starts a blank
// document.
func NewSession(filename, author string, data []byte) (*Session, error) {
	var pkg *ooxml.Package
	if len(data) == 0 {
		pkg = ooxml.NewPackage()
	} else {
		var err error
		pkg, err = ooxml.OpenPackage(data)
		if err != nil {
			return nil, err
		}
	}
	rev := revision.NewContext(author)
	pkg.Reserve(rev)
	now := time.Now()
	return &Session{
		ID:        generateULID(),
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
		pkg:       pkg,
		rev:       rev,
		indexer:   docindex.NewIndexer(textedit.NewEngine(rev)),
	}, nil
}

// With runs fn while holding the session lock. Every read or mutation of
// the document goes through here.
func (s *Session) With(fn func(pkg *ooxml.Package, idx *docindex.Indexer, rev *revision.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.pkg, s.indexer, s.rev)
	s.UpdatedAt = time.Now()
	if err == nil {
		s.edits++
	}
	return err
}

// Save serializes the document under the session lock.
func (s *Session) Save() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
	return s.pkg.Save()
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID        string    `json:"session_id"`
	Filename  string    `json:"filename"`
	Edits     int       `json:"edits"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:        s.ID,
		Filename:  s.Filename,
		Edits:     s.edits,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// List returns snapshots of all live sessions.
func (s *Store) List() []Snapshot {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	out := make([]Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	return out
}

// Cleanup removes sessions idle past the TTL.
func (s *Store) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, sess := range s.sessions {
		if now.Sub(sess.Snapshot().UpdatedAt) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// Start launches the background eviction loop.
func (s *Store) Start(interval time.Duration) {
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts the eviction loop and waits for it to exit.
func (s *Store) Stop() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
}

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// generateULID returns a 26-character Crockford Base32 id with a millisecond
// timestamp prefix, unique within the process.
func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[6:])
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encodeULID(b)
}

func encodeULID(b [16]byte) string {
	var out [26]byte
	out[0] = crockford[(b[0]&224)>>5]
	out[1] = crockford[b[0]&31]
	out[2] = crockford[(b[1]&248)>>3]
	out[3] = crockford[((b[1]&7)<<2)|((b[2]&192)>>6)]
	out[4] = crockford[(b[2]&62)>>1]
	out[5] = crockford[((b[2]&1)<<4)|((b[3]&240)>>4)]
	out[6] = crockford[((b[3]&15)<<1)|((b[4]&128)>>7)]
	out[7] = crockford[(b[4]&124)>>2]
	out[8] = crockford[((b[4]&3)<<3)|((b[5]&224)>>5)]
	out[9] = crockford[b[5]&31]
	out[10] = crockford[(b[6]&248)>>3]
	out[11] = crockford[((b[6]&7)<<2)|((b[7]&192)>>6)]
	out[12] = crockford[(b[7]&62)>>1]
	out[13] = crockford[((b[7]&1)<<4)|((b[8]&240)>>4)]
	out[14] = crockford[((b[8]&15)<<1)|((b[9]&128)>>7)]
	out[15] = crockford[(b[9]&124)>>2]
	out[16] = crockford[((b[9]&3)<<3)|((b[10]&224)>>5)]
	out[17] = crockford[b[10]&31]
	out[18] = crockford[(b[11]&248)>>3]
	out[19] = crockford[((b[11]&7)<<2)|((b[12]&192)>>6)]
	out[20] = crockford[(b[12]&62)>>1]
	out[21] = crockford[((b[12]&1)<<4)|((b[13]&240)>>4)]
	out[22] = crockford[((b[13]&15)<<1)|((b[14]&128)>>7)]
	out[23] = crockford[(b[14]&124)>>2]
	out[24] = crockford[((b[14]&3)<<3)|((b[15]&224)>>5)]
	out[25] = crockford[b[15]&31]
	return fmt.Sprintf("%s", out[:])
}
