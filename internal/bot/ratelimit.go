package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userRateLimiter ограничивает частоту генерирующих команд на пользователя
type userRateLimiter struct {
	mu       sync.Mutex
	visitors map[int64]*visitor
	rps      rate.Limit
	burst    int
}

func newUserRateLimiter(interval time.Duration, burst int) *userRateLimiter {
	rl := &userRateLimiter{
		visitors: make(map[int64]*visitor),
		rps:      rate.Every(interval),
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

// Allow сообщает, может ли пользователь выполнить ещё один запрос сейчас
func (rl *userRateLimiter) Allow(userID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[userID]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[userID] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (rl *userRateLimiter) cleanup() {
	for {
		time.Sleep(10 * time.Minute)
		rl.mu.Lock()
		for id, v := range rl.visitors {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.visitors, id)
			}
		}
		rl.mu.Unlock()
	}
}
