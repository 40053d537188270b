package client

import "sync"

// identTable is a per-socket 256-slot identifier allocator (spec.md §4.2,
// §9 "Identifier allocator"). The free/in-use bitmap and round-robin
// scan are adapted from the teacher's IP pool bitmap allocator
// (internal/pool.Pool.Allocate), specialized from a variable-size IP
// range to a fixed 256-bit identifier space.
type identTable struct {
	mu      sync.Mutex
	bitmap  [4]uint64 // 1 bit per identifier: 1 = allocated
	next    int       // round-robin cursor, 0..255
	pending [256]*pendingRequest
}

func newIdentTable() *identTable {
	return &identTable{}
}

func (t *identTable) isSet(id int) bool {
	return t.bitmap[id/64]&(1<<uint(id%64)) != 0
}

func (t *identTable) set(id int) {
	t.bitmap[id/64] |= 1 << uint(id%64)
}

func (t *identTable) clear(id int) {
	t.bitmap[id/64] &^= 1 << uint(id%64)
}

// reserve finds the next free identifier starting at the round-robin
// cursor and wrapping from 255 back to 0, skipping slots in use, and
// marks it occupied. Returns ok=false if all 256 slots are occupied —
// callers must not block. The slot holds no *pendingRequest until a
// matching publish call: reserve only claims the identifier so the
// caller can finish building the request (encode its datagram, pick a
// server, set its first retry deadline) before any other goroutine can
// observe it.
func (t *identTable) reserve() (id byte, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i < 256; i++ {
		candidate := (t.next + i) % 256
		if !t.isSet(candidate) {
			t.set(candidate)
			t.next = (candidate + 1) % 256
			return byte(candidate), true
		}
	}
	return 0, false
}

// publish makes a fully-built pendingRequest visible to lookup/snapshot
// under id, which must have come from a prior reserve call. Acquiring
// t.mu here happens-after every field write the caller made while
// building pr, and lookup/snapshot only ever observe pr through the same
// lock, so every sweep-goroutine or receive-loop read of pr's fields is
// ordered after those writes.
func (t *identTable) publish(id byte, pr *pendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[id] = pr
}

// release frees an identifier slot for reuse.
func (t *identTable) release(id byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clear(int(id))
	t.pending[id] = nil
}

// lookup returns the pending request occupying id, if any.
func (t *identTable) lookup(id byte) (*pendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pr := t.pending[id]
	return pr, pr != nil
}

// snapshot returns every published pending request; identifiers that are
// reserved but not yet published are not included. Used by the
// sweep task; the table lock is held only long enough to copy pointers,
// never across network I/O (spec.md §5).
func (t *identTable) snapshot() []*pendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*pendingRequest, 0, 256)
	for _, pr := range t.pending {
		if pr != nil {
			out = append(out, pr)
		}
	}
	return out
}

// inUse returns the number of occupied identifier slots.
func (t *identTable) inUse() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, word := range t.bitmap {
		for word != 0 {
			n += int(word & 1)
			word >>= 1
		}
	}
	return n
}
