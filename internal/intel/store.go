// Package intel tracks per-IP reputation and the temporary block lifecycle.
package intel

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/argussec/argus/internal/metrics"
	"github.com/argussec/argus/internal/models"
)

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	records map[string]*models.IPIntelligence
}

// Store holds the live intelligence records. Updates for one IP are
// serialized under its shard lock; unrelated IPs rarely contend.
type Store struct {
	shards [shardCount]*shard

	// now is swappable for tests.
	now func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	s := &Store{now: time.Now}
	for i := range s.shards {
		s.shards[i] = &shard{records: make(map[string]*models.IPIntelligence)}
	}
	return s
}

// Get returns a copy of the record for ip, creating a neutral one if absent.
func (s *Store) Get(ip string) models.IPIntelligence {
	sh := s.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return s.getLocked(sh, ip).Clone()
}

// Touch records one observed request from ip.
func (s *Store) Touch(ip, userAgent string) {
	sh := s.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	rec := s.getLocked(sh, ip)
	rec.TotalRequests++
	rec.LastSeen = s.now()
	if userAgent != "" {
		rec.UserAgents[userAgent] = true
	}
}

// RecordViolation lowers the reputation by delta (clamped to [0,1]) and
// bumps the attack-pattern histogram. Returns the updated record.
func (s *Store) RecordViolation(ip string, attack models.AttackType, delta float64) models.IPIntelligence {
	sh := s.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec := s.getLocked(sh, ip)
	rec.Reputation = clamp(rec.Reputation - delta)
	rec.AttackPatterns[attack]++
	rec.LastSeen = s.now()
	rec.Level = levelFor(rec.Reputation)
	return rec.Clone()
}

// Block marks ip blocked until now+duration.
func (s *Store) Block(ip string, duration time.Duration, reason string) models.IPIntelligence {
	sh := s.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec := s.getLocked(sh, ip)
	rec.IsBlocked = true
	rec.BlockExpiresAt = s.now().Add(duration)
	rec.BlockReason = reason
	rec.BlockedRequests++
	metrics.IncBlocked()
	return rec.Clone()
}

// Unblock clears an active block immediately.
func (s *Store) Unblock(ip string) models.IPIntelligence {
	sh := s.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec := s.getLocked(sh, ip)
	rec.IsBlocked = false
	rec.BlockExpiresAt = time.Time{}
	rec.BlockReason = ""
	return rec.Clone()
}

// IsBlocked reports whether ip has an active block. Expired blocks are
// cleared lazily here, so no background sweep is needed for correctness.
func (s *Store) IsBlocked(ip string) bool {
	sh := s.shardFor(ip)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[ip]
	if !ok || !rec.IsBlocked {
		return false
	}
	if s.now().After(rec.BlockExpiresAt) {
		rec.IsBlocked = false
		rec.BlockExpiresAt = time.Time{}
		rec.BlockReason = ""
		return false
	}
	return true
}

// Blocked returns copies of all records with an active block.
func (s *Store) Blocked() []models.IPIntelligence {
	now := s.now()
	var out []models.IPIntelligence
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, rec := range sh.records {
			if rec.IsBlocked && now.Before(rec.BlockExpiresAt) {
				out = append(out, rec.Clone())
			}
		}
		sh.mu.Unlock()
	}
	return out
}

// Snapshot returns copies of every tracked record.
func (s *Store) Snapshot() []models.IPIntelligence {
	var out []models.IPIntelligence
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, rec := range sh.records {
			out = append(out, rec.Clone())
		}
		sh.mu.Unlock()
	}
	return out
}

// Restore seeds the store with persisted records, keeping any live state.
func (s *Store) Restore(records []models.IPIntelligence) {
	for i := range records {
		rec := records[i]
		sh := s.shardFor(rec.IP)
		sh.mu.Lock()
		if _, exists := sh.records[rec.IP]; !exists {
			cp := rec.Clone()
			sh.records[rec.IP] = &cp
		}
		sh.mu.Unlock()
	}
}

// Decay nudges every unblocked record's reputation toward neutral by step.
// Forgiveness only; blocking never depends on this running.
func (s *Store) Decay(step float64) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, rec := range sh.records {
			if rec.IsBlocked {
				continue
			}
			switch {
			case rec.Reputation < models.DefaultReputation:
				rec.Reputation = clamp(min(rec.Reputation+step, models.DefaultReputation))
			case rec.Reputation > models.DefaultReputation:
				rec.Reputation = clamp(max(rec.Reputation-step, models.DefaultReputation))
			}
			rec.Level = levelFor(rec.Reputation)
		}
		sh.mu.Unlock()
	}
}

// Prune ages out records that returned to neutral and have been idle for
// longer than retention.
func (s *Store) Prune(retention time.Duration) int {
	cutoff := s.now().Add(-retention)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for ip, rec := range sh.records {
			if rec.IsBlocked {
				continue
			}
			if rec.Reputation >= models.DefaultReputation && rec.LastSeen.Before(cutoff) {
				delete(sh.records, ip)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (s *Store) getLocked(sh *shard, ip string) *models.IPIntelligence {
	rec, ok := sh.records[ip]
	if !ok {
		rec = models.NewIPIntelligence(ip, s.now())
		sh.records[ip] = rec
	}
	return rec
}

func (s *Store) shardFor(ip string) *shard {
	h := fnv.New32a()
	h.Write([]byte(ip))
	return s.shards[h.Sum32()%shardCount]
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func levelFor(reputation float64) models.ThreatLevel {
	switch {
	case reputation < 0.1:
		return models.ThreatCritical
	case reputation < 0.25:
		return models.ThreatHigh
	case reputation < 0.4:
		return models.ThreatMedium
	}
	return models.ThreatLow
}
