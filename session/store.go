package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/BaSui01/rsimage/internal/retry"
)

// Plan 套餐类型
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Unlimited 表示无上限的额度
const Unlimited = -1

// Usage 用量记录
type Usage struct {
	Plan  Plan `json:"plan"`
	Used  int  `json:"used"`
	Limit int  `json:"limit"` // Unlimited 表示无上限
}

// Unbounded 是否无上限
func (u Usage) Unbounded() bool {
	return u.Limit == Unlimited
}

// Prefs 用户偏好
type Prefs struct {
	ResponseFormat string `json:"response_format"`
	Size           int    `json:"size"`
}

// DefaultPrefs 新用户的默认偏好
func DefaultPrefs() Prefs {
	return Prefs{ResponseFormat: "url", Size: 1080}
}

// Job 最近一次成功生成的记录
type Job struct {
	Prompt   string    `json:"prompt"`
	Negative string    `json:"negative,omitempty"`
	Prefs    Prefs     `json:"prefs"`
	URL      string    `json:"url,omitempty"`
	HasBytes bool      `json:"has_bytes"`
	At       time.Time `json:"at"`
}

// Entry 单个用户的全部进程内状态
type Entry struct {
	UserID     int64
	LastAction time.Time
	Usage      Usage
	Prefs      Prefs
	JoinedAt   time.Time
	Wallet     int
	LastJob    *Job

	limiter *rate.Limiter
}

// Limiter 冷却限流器，突发容量为 1
func (e *Entry) Limiter() *rate.Limiter {
	return e.limiter
}

// Options 存储选项
type Options struct {
	FreeLimit int
	Cooldown  time.Duration
}

// Store 以用户 ID 为键的会话存储。
// 所有读写都在同一把锁下完成，单用户条目的修改是原子的；进程退出即丢失。
type Store struct {
	mu      sync.Mutex
	entries map[int64]*Entry
	opts    Options
	clock   retry.Clock
}

// NewStore 创建会话存储，clock 为 nil 时使用系统时钟
func NewStore(opts Options, clock retry.Clock) *Store {
	if opts.FreeLimit < 0 {
		opts.FreeLimit = 0
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if clock == nil {
		clock = retry.SystemClock()
	}
	return &Store{
		entries: make(map[int64]*Entry),
		opts:    opts,
		clock:   clock,
	}
}

// Cooldown 返回配置的冷却时长
func (s *Store) Cooldown() time.Duration {
	return s.opts.Cooldown
}

// Update 在锁内对用户条目执行 fn，条目不存在时按默认值创建
func (s *Store) Update(userID int64, fn func(e *Entry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.entryLocked(userID))
}

// Get 返回用户条目的副本
func (s *Store) Get(userID int64) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *s.entryLocked(userID)
	if e.LastJob != nil {
		job := *e.LastJob
		e.LastJob = &job
	}
	e.limiter = nil
	return e
}

// Len 已知用户数
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) entryLocked(userID int64) *Entry {
	if e, ok := s.entries[userID]; ok {
		return e
	}
	e := &Entry{
		UserID:   userID,
		Usage:    Usage{Plan: PlanFree, Used: 0, Limit: s.opts.FreeLimit},
		Prefs:    DefaultPrefs(),
		JoinedAt: s.clock.Now(),
		limiter:  newCooldownLimiter(s.opts.Cooldown),
	}
	s.entries[userID] = e
	return e
}

func newCooldownLimiter(cooldown time.Duration) *rate.Limiter {
	if cooldown <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(cooldown), 1)
}
