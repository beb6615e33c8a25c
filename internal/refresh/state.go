package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status values reported for a corpus refresh.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	lockKey     = "refresh:lock"
	totalKey    = "refresh:total"
	successKey  = "refresh:success"
	skippedKey  = "refresh:skipped"
	deletedKey  = "refresh:deleted"
	finalizeKey = "refresh:finalized"
	statusKey   = "refresh:status"

	// A refresh that has not finished after this long is considered
	// abandoned and its lock expires, so the next trigger can run.
	LockTTL = 30 * time.Minute

	statusTTL = 24 * time.Hour
)

// StatusSnapshot is the persisted outcome of the latest refresh. Message
// holds the human-readable summary composed when the run reaches a terminal
// state.
type StatusSnapshot struct {
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Total      int64     `json:"total"`
	Indexed    int64     `json:"indexed"`
	Skipped    int64     `json:"skipped"`
	Deleted    int64     `json:"deleted"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Store is the progress-tracking surface the sync and consumer services
// depend on. *State is the Redis-backed implementation.
type Store interface {
	AcquireLock(ctx context.Context) (bool, error)
	ReleaseLock(ctx context.Context) error
	ResetCounters(ctx context.Context) error
	SetTotal(ctx context.Context, total int64) error
	IncrSuccess(ctx context.Context) (int64, error)
	IncrSkipped(ctx context.Context) (int64, error)
	IncrDeleted(ctx context.Context) (int64, error)
	Counters(ctx context.Context) (int64, int64, int64, int64, error)
	TryFinalize(ctx context.Context) (bool, error)
	SetStatus(ctx context.Context, snapshot *StatusSnapshot) error
	GetStatus(ctx context.Context) (*StatusSnapshot, error)
}

// State tracks refresh progress in Redis so that concurrent triggers are
// rejected and counters survive worker restarts.
type State struct {
	rdb *redis.Client
}

func NewState(rdb *redis.Client) *State {
	return &State{rdb: rdb}
}

// AcquireLock claims the single refresh slot. It returns false when another
// refresh currently holds it.
func (s *State) AcquireLock(ctx context.Context) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), LockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire refresh lock: %w", err)
	}
	return ok, nil
}

func (s *State) ReleaseLock(ctx context.Context) error {
	return s.rdb.Del(ctx, lockKey).Err()
}

// ResetCounters clears the per-run counters and the finalize marker. Called
// once at the start of a refresh, after the lock is held.
func (s *State) ResetCounters(ctx context.Context) error {
	return s.rdb.Del(ctx, totalKey, successKey, skippedKey, deletedKey, finalizeKey).Err()
}

func (s *State) SetTotal(ctx context.Context, total int64) error {
	return s.rdb.Set(ctx, totalKey, total, LockTTL).Err()
}

func (s *State) IncrSuccess(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, successKey).Result()
}

func (s *State) IncrSkipped(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, skippedKey).Result()
}

func (s *State) IncrDeleted(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, deletedKey).Result()
}

// Counters returns (total, success, skipped, deleted) for the active run.
// Missing keys read as zero.
func (s *State) Counters(ctx context.Context) (int64, int64, int64, int64, error) {
	vals, err := s.rdb.MGet(ctx, totalKey, successKey, skippedKey, deletedKey).Result()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	nums := make([]int64, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			continue
		}
		var n int64
		if _, err := fmt.Sscanf(str, "%d", &n); err == nil {
			nums[i] = n
		}
	}
	return nums[0], nums[1], nums[2], nums[3], nil
}

// TryFinalize marks the run finished exactly once. Multiple workers may
// observe the last document completing; only the first caller gets true.
func (s *State) TryFinalize(ctx context.Context) (bool, error) {
	return s.rdb.SetNX(ctx, finalizeKey, "1", LockTTL).Result()
}

func (s *State) SetStatus(ctx context.Context, snapshot *StatusSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal refresh status: %w", err)
	}
	return s.rdb.Set(ctx, statusKey, raw, statusTTL).Err()
}

// GetStatus returns the latest persisted snapshot, or an idle snapshot when
// no refresh has run within the retention window.
func (s *State) GetStatus(ctx context.Context) (*StatusSnapshot, error) {
	raw, err := s.rdb.Get(ctx, statusKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return &StatusSnapshot{Status: StatusIdle}, nil
		}
		return nil, err
	}
	var snapshot StatusSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal refresh status: %w", err)
	}
	return &snapshot, nil
}
