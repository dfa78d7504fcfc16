package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKey = "consensus:scan-lock"
	defaultTTL = 15 * time.Minute
)

// unlockScript borra la clave sólo si el token coincide, para no liberar
// un lock que expiró y ya tomó otra réplica.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript renueva el TTL sólo si el token coincide.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lock implementa ports.ScanLock con SET NX + TTL en Redis.
// Cada instancia usa un token propio; sólo quien tomó el lock lo libera.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// Options configura el lock.
type Options struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// New conecta con Redis y verifica la conexión con un PING.
func New(ctx context.Context, opts Options) (*Lock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redislock.New: ping %s: %w", opts.Addr, err)
	}
	return NewWithClient(client, opts.Key, opts.TTL), nil
}

// NewWithClient crea un lock sobre un cliente existente.
func NewWithClient(client *redis.Client, key string, ttl time.Duration) *Lock {
	if key == "" {
		key = defaultKey
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Lock{client: client, key: key, ttl: ttl, token: uuid.NewString()}
}

// TryLock intenta tomar el lock sin esperar.
func (l *Lock) TryLock(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redislock.TryLock: %w", err)
	}
	if ok {
		slog.Debug("scan lock acquired", "key", l.key, "ttl", l.ttl)
	}
	return ok, nil
}

// Refresh extiende el TTL del lock si sigue siendo nuestro.
func (l *Lock) Refresh(ctx context.Context) (bool, error) {
	n, err := refreshScript.Run(ctx, l.client, []string{l.key}, l.token, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redislock.Refresh: %w", err)
	}
	return n == 1, nil
}

// Unlock libera el lock si sigue siendo nuestro.
func (l *Lock) Unlock(ctx context.Context) error {
	n, err := unlockScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("redislock.Unlock: %w", err)
	}
	if n == 0 {
		slog.Warn("scan lock was not ours on release (expired?)", "key", l.key)
	}
	return nil
}

// Close cierra el cliente de Redis.
func (l *Lock) Close() error {
	return l.client.Close()
}
