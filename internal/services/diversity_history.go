package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
)

// DiversityHistory tracks which items and occasion/style combinations were
// recently served to a user, feeding the diversity dimension and the tier
// filter's freshness check. Writes are last-write-wins: concurrent
// generations for the same user may both record, and the scorer tolerates
// slightly stale reads.
type DiversityHistory interface {
	// RecentlyUsed returns item -> last-served time within the item window.
	RecentlyUsed(ctx context.Context, userID string) (map[uuid.UUID]time.Time, error)

	// UsageCounts returns item -> number of times served within the
	// combination window.
	UsageCounts(ctx context.Context, userID string) (map[uuid.UUID]int, error)

	// RecordUsage appends one generation's items to the user's history.
	RecordUsage(ctx context.Context, userID string, itemIDs []uuid.UUID, at time.Time) error
}

// RedisDiversityHistory keeps per-user history in a sorted set keyed by
// serve time, trimmed on write to the combination window and a max entry
// count.
type RedisDiversityHistory struct {
	client *redis.Client
	cfg    *config.DiversityConfig
	logger *logrus.Logger
}

func NewRedisDiversityHistory(client *redis.Client, cfg *config.DiversityConfig, logger *logrus.Logger) *RedisDiversityHistory {
	return &RedisDiversityHistory{client: client, cfg: cfg, logger: logger}
}

func historyKey(userID string) string {
	return fmt.Sprintf("diversity:items:%s", userID)
}

// Members are "itemID|unixnano" so repeated serves of one item stay distinct
// entries; the score is the serve time for range trimming.
func historyMember(itemID uuid.UUID, at time.Time) string {
	return itemID.String() + "|" + strconv.FormatInt(at.UnixNano(), 10)
}

func parseHistoryMember(member string) (uuid.UUID, bool) {
	idx := strings.IndexByte(member, '|')
	if idx < 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(member[:idx])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (h *RedisDiversityHistory) RecentlyUsed(ctx context.Context, userID string) (map[uuid.UUID]time.Time, error) {
	cutoff := time.Now().Add(-h.cfg.ItemWindow)

	entries, err := h.client.ZRangeByScoreWithScores(ctx, historyKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff.UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent usage: %w", err)
	}

	recent := make(map[uuid.UUID]time.Time, len(entries))
	for _, entry := range entries {
		id, ok := parseHistoryMember(entry.Member.(string))
		if !ok {
			continue
		}
		at := time.Unix(0, int64(entry.Score))
		if existing, ok := recent[id]; !ok || at.After(existing) {
			recent[id] = at
		}
	}
	return recent, nil
}

func (h *RedisDiversityHistory) UsageCounts(ctx context.Context, userID string) (map[uuid.UUID]int, error) {
	cutoff := time.Now().Add(-h.cfg.CombinationWindow)

	members, err := h.client.ZRangeByScore(ctx, historyKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff.UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read usage counts: %w", err)
	}

	counts := make(map[uuid.UUID]int, len(members))
	for _, member := range members {
		if id, ok := parseHistoryMember(member); ok {
			counts[id]++
		}
	}
	return counts, nil
}

func (h *RedisDiversityHistory) RecordUsage(ctx context.Context, userID string, itemIDs []uuid.UUID, at time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	key := historyKey(userID)
	members := make([]redis.Z, len(itemIDs))
	for i, id := range itemIDs {
		members[i] = redis.Z{Score: float64(at.UnixNano()), Member: historyMember(id, at)}
	}

	pipe := h.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	// Trim by age and by entry cap in the same round trip.
	cutoff := at.Add(-h.cfg.CombinationWindow)
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff.UnixNano(), 10))
	if h.cfg.HistoryMaxEntries > 0 {
		pipe.ZRemRangeByRank(ctx, key, 0, int64(-h.cfg.HistoryMaxEntries-1))
	}
	pipe.Expire(ctx, key, h.cfg.CombinationWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// MemoryDiversityHistory is the in-process implementation used in tests and
// when Redis is not configured.
type MemoryDiversityHistory struct {
	mu      sync.RWMutex
	cfg     *config.DiversityConfig
	entries map[string][]memoryEntry
}

type memoryEntry struct {
	itemID uuid.UUID
	at     time.Time
}

func NewMemoryDiversityHistory(cfg *config.DiversityConfig) *MemoryDiversityHistory {
	return &MemoryDiversityHistory{
		cfg:     cfg,
		entries: make(map[string][]memoryEntry),
	}
}

func (h *MemoryDiversityHistory) RecentlyUsed(_ context.Context, userID string) (map[uuid.UUID]time.Time, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-h.cfg.ItemWindow)
	recent := make(map[uuid.UUID]time.Time)
	for _, e := range h.entries[userID] {
		if e.at.Before(cutoff) {
			continue
		}
		if existing, ok := recent[e.itemID]; !ok || e.at.After(existing) {
			recent[e.itemID] = e.at
		}
	}
	return recent, nil
}

func (h *MemoryDiversityHistory) UsageCounts(_ context.Context, userID string) (map[uuid.UUID]int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := time.Now().Add(-h.cfg.CombinationWindow)
	counts := make(map[uuid.UUID]int)
	for _, e := range h.entries[userID] {
		if !e.at.Before(cutoff) {
			counts[e.itemID]++
		}
	}
	return counts, nil
}

func (h *MemoryDiversityHistory) RecordUsage(_ context.Context, userID string, itemIDs []uuid.UUID, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.entries[userID]
	for _, id := range itemIDs {
		entries = append(entries, memoryEntry{itemID: id, at: at})
	}

	cutoff := at.Add(-h.cfg.CombinationWindow)
	trimmed := entries[:0]
	for _, e := range entries {
		if !e.at.Before(cutoff) {
			trimmed = append(trimmed, e)
		}
	}
	if max := h.cfg.HistoryMaxEntries; max > 0 && len(trimmed) > max {
		trimmed = trimmed[len(trimmed)-max:]
	}
	h.entries[userID] = trimmed
	return nil
}
