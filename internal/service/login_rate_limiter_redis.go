package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript guarda cada intento como miembro de un sorted set con
// score en milisegundos. Devuelve 1 si el intento entra en la ventana.
//
// KEYS[1] clave; ARGV: ahora_ms, ventana_ms, maximo, miembro.
var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[3]) then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`)

// redisLoginRateLimiter comparte la ventana deslizante entre instancias del
// API. Misma semantica que el limiter en memoria.
type redisLoginRateLimiter struct {
	scripter redis.Scripter
	window   time.Duration
	max      int
	prefix   string
	timeout  time.Duration
	now      func() time.Time
}

// NewRedisLoginRateLimiter devuelve nil si no hay cliente; NewUserService cae
// entonces al limiter en memoria.
func NewRedisLoginRateLimiter(client *redis.Client, window time.Duration, max int) LoginRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisLoginRateLimiter{
		scripter: client,
		window:   window,
		max:      max,
		prefix:   "login:rl:",
		timeout:  500 * time.Millisecond,
		now:      time.Now,
	}
}

// Allow falla abierto: si redis no responde el login sigue funcionando.
func (l *redisLoginRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.scripter == nil {
		return true
	}
	key = normalizeLimiterKey(key)
	if key == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	allowed, err := slidingWindowScript.Run(ctx, l.scripter,
		[]string{l.prefix + key},
		l.now().UnixMilli(),
		l.window.Milliseconds(),
		l.max,
		uuid.NewString(),
	).Int()
	if err != nil {
		return true
	}
	return allowed == 1
}
