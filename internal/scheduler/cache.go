package scheduler

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/julianstephens/studyplan/internal/models"
)

// SlotKey identifies a slot lookup. Version is the owner's calendar version,
// so any write to the calendar makes older entries unreachable.
type SlotKey struct {
	Owner          string
	From           time.Time
	To             time.Time
	MinDurationMin int
	MaxChunkMin    int
	WakeMin        int
	SleepMin       int
	Version        int64
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s|%d|%d|%d|%d|%d|%d|v%d",
		k.Owner, k.From.Unix(), k.To.Unix(), k.MinDurationMin, k.MaxChunkMin, k.WakeMin, k.SleepMin, k.Version)
}

// SlotCache memoizes FindEmptySlots results per calendar version.
type SlotCache struct {
	cache *cache.Cache
}

func NewSlotCache(ttl time.Duration) *SlotCache {
	return &SlotCache{cache: cache.New(ttl, 2*ttl)}
}

// Lookup returns cached slots for q or computes and stores them.
func (c *SlotCache) Lookup(owner string, version int64, q SlotQuery) []models.TimeSlot {
	key := SlotKey{
		Owner:          owner,
		From:           q.From,
		To:             q.To,
		MinDurationMin: q.MinDurationMin,
		MaxChunkMin:    q.MaxChunkMin,
		WakeMin:        q.WakeMin,
		SleepMin:       q.SleepMin,
		Version:        version,
	}
	if !q.Now.IsZero() && q.Now.After(key.From) {
		key.From = ceilMinute(q.Now)
	}
	if cached, found := c.cache.Get(key.String()); found {
		return cloneSlots(cached.([]models.TimeSlot))
	}
	slots := FindEmptySlots(q)
	c.cache.Set(key.String(), cloneSlots(slots), cache.DefaultExpiration)
	return slots
}

// Forget drops every cached entry.
func (c *SlotCache) Forget() {
	c.cache.Flush()
}

func (c *SlotCache) Len() int {
	return c.cache.ItemCount()
}

func cloneSlots(slots []models.TimeSlot) []models.TimeSlot {
	out := make([]models.TimeSlot, len(slots))
	copy(out, slots)
	return out
}
