// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tambola-hq/tambola/internal/game"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Store implements game.Store on Redis. Per-game state lives under the
// "tambola:game:{id}:" prefix; every key is tracked in a per-game registry
// set so the retention TTL can cover all of them at once.
type Store struct {
	rdb *redis.Client
}

// NewStore returns a Store over the given client (Rdb by default).
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func gameKey(gameID uuid.UUID, parts ...string) string {
	key := "tambola:game:" + gameID.String()
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// track adds keys to the game's key registry so ExpireGame can find them.
func (s *Store) track(ctx context.Context, gameID uuid.UUID, keys ...string) error {
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}
	return s.rdb.SAdd(ctx, gameKey(gameID, "keys"), members...).Err()
}

func (s *Store) CreateGame(ctx context.Context, gameID uuid.UUID) error {
	statusKey := gameKey(gameID, "status")
	if err := s.rdb.SetNX(ctx, statusKey, string(game.StatusLobby), 0).Err(); err != nil {
		return storeErr(err)
	}
	if err := s.track(ctx, gameID, statusKey); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) Status(ctx context.Context, gameID uuid.UUID) (game.GameStatus, error) {
	val, err := s.rdb.Get(ctx, gameKey(gameID, "status")).Result()
	if errors.Is(err, redis.Nil) {
		return "", game.ErrGameNotFound
	}
	if err != nil {
		return "", storeErr(err)
	}
	return game.GameStatus(val), nil
}

func (s *Store) SetStatus(ctx context.Context, gameID uuid.UUID, status game.GameStatus) error {
	if err := s.rdb.Set(ctx, gameKey(gameID, "status"), string(status), 0).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) ExpireGame(ctx context.Context, gameID uuid.UUID, ttl time.Duration) error {
	registry := gameKey(gameID, "keys")
	keys, err := s.rdb.SMembers(ctx, registry).Result()
	if err != nil {
		return storeErr(err)
	}
	pipe := s.rdb.Pipeline()
	for _, k := range keys {
		pipe.Expire(ctx, k, ttl)
	}
	pipe.Expire(ctx, registry, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) PutPlayer(ctx context.Context, gameID uuid.UUID, p game.PlayerInfo) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	playersKey := gameKey(gameID, "players")
	accountsKey := gameKey(gameID, "accounts")
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, playersKey, p.ID.String(), data)
	pipe.HSet(ctx, accountsKey, p.AccountID.String(), p.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr(err)
	}
	return s.trackOrWarn(ctx, gameID, playersKey, accountsKey)
}

func (s *Store) PlayerByAccount(ctx context.Context, gameID, accountID uuid.UUID) (game.PlayerInfo, bool, error) {
	pidStr, err := s.rdb.HGet(ctx, gameKey(gameID, "accounts"), accountID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return game.PlayerInfo{}, false, nil
	}
	if err != nil {
		return game.PlayerInfo{}, false, storeErr(err)
	}
	pid, err := uuid.Parse(pidStr)
	if err != nil {
		return game.PlayerInfo{}, false, err
	}
	p, err := s.Player(ctx, gameID, pid)
	if err != nil {
		return game.PlayerInfo{}, false, err
	}
	return p, true, nil
}

func (s *Store) Player(ctx context.Context, gameID, playerID uuid.UUID) (game.PlayerInfo, error) {
	data, err := s.rdb.HGet(ctx, gameKey(gameID, "players"), playerID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return game.PlayerInfo{}, game.ErrPlayerNotFound
	}
	if err != nil {
		return game.PlayerInfo{}, storeErr(err)
	}
	var p game.PlayerInfo
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return game.PlayerInfo{}, err
	}
	return p, nil
}

// appendCallScript atomically rejects a duplicate via the called-set and
// appends to the ordered call list, returning the new length (the 1-based
// position) or -1 for a duplicate.
var appendCallScript = redis.NewScript(`
if redis.call("SADD", KEYS[1], ARGV[1]) == 0 then
	return -1
end
return redis.call("RPUSH", KEYS[2], ARGV[1])
`)

func (s *Store) AppendCall(ctx context.Context, gameID uuid.UUID, number int) (int, error) {
	calledKey := gameKey(gameID, "called")
	callsKey := gameKey(gameID, "calls")
	res, err := appendCallScript.Run(ctx, s.rdb, []string{calledKey, callsKey}, number).Int64()
	if err != nil {
		return 0, storeErr(err)
	}
	if res < 0 {
		return 0, game.ErrDuplicateCall
	}
	if err := s.trackOrWarn(ctx, gameID, calledKey, callsKey); err != nil {
		return 0, err
	}
	return int(res), nil
}

func (s *Store) Calls(ctx context.Context, gameID uuid.UUID) ([]int, error) {
	vals, err := s.rdb.LRange(ctx, gameKey(gameID, "calls"), 0, -1).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt call entry %q for game %s: %w", v, gameID, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) IsCalled(ctx context.Context, gameID uuid.UUID, number int) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, gameKey(gameID, "called"), number).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

func (s *Store) PutTicket(ctx context.Context, gameID, playerID uuid.UUID, t game.Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	key := gameKey(gameID, "ticket", playerID.String())
	set, err := s.rdb.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return storeErr(err)
	}
	if !set {
		return game.ErrAlreadyAssigned
	}
	return s.trackOrWarn(ctx, gameID, key)
}

func (s *Store) TicketOf(ctx context.Context, gameID, playerID uuid.UUID) (game.Ticket, error) {
	data, err := s.rdb.Get(ctx, gameKey(gameID, "ticket", playerID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return game.Ticket{}, game.ErrPlayerNotFound
	}
	if err != nil {
		return game.Ticket{}, storeErr(err)
	}
	var t game.Ticket
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return game.Ticket{}, err
	}
	return t, nil
}

func (s *Store) AddMark(ctx context.Context, gameID, playerID uuid.UUID, number int) error {
	key := gameKey(gameID, "marks", playerID.String())
	if err := s.rdb.SAdd(ctx, key, number).Err(); err != nil {
		return storeErr(err)
	}
	return s.trackOrWarn(ctx, gameID, key)
}

func (s *Store) Marks(ctx context.Context, gameID, playerID uuid.UUID) (map[int]struct{}, error) {
	vals, err := s.rdb.SMembers(ctx, gameKey(gameID, "marks", playerID.String())).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	out := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt mark entry %q for game %s: %w", v, gameID, err)
		}
		out[n] = struct{}{}
	}
	return out, nil
}

func (s *Store) IndexAdd(ctx context.Context, gameID uuid.UUID, number int, playerID uuid.UUID) error {
	key := gameKey(gameID, "index", strconv.Itoa(number))
	if err := s.rdb.SAdd(ctx, key, playerID.String()).Err(); err != nil {
		return storeErr(err)
	}
	return s.trackOrWarn(ctx, gameID, key)
}

func (s *Store) Holders(ctx context.Context, gameID uuid.UUID, number int) ([]uuid.UUID, error) {
	vals, err := s.rdb.SMembers(ctx, gameKey(gameID, "index", strconv.Itoa(number))).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]uuid.UUID, 0, len(vals))
	for _, v := range vals {
		pid, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt index entry %q for game %s: %w", v, gameID, err)
		}
		out = append(out, pid)
	}
	return out, nil
}

func (s *Store) AppendWinner(ctx context.Context, gameID uuid.UUID, w game.Winner) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	key := gameKey(gameID, "winners")
	if err := s.rdb.RPush(ctx, key, data).Err(); err != nil {
		return storeErr(err)
	}
	return s.trackOrWarn(ctx, gameID, key)
}

func (s *Store) Winners(ctx context.Context, gameID uuid.UUID) ([]game.Winner, error) {
	vals, err := s.rdb.LRange(ctx, gameKey(gameID, "winners"), 0, -1).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]game.Winner, 0, len(vals))
	for _, v := range vals {
		var w game.Winner
		if err := json.Unmarshal([]byte(v), &w); err != nil {
			return nil, fmt.Errorf("corrupt winner entry for game %s: %w", gameID, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *Store) trackOrWarn(ctx context.Context, gameID uuid.UUID, keys ...string) error {
	if err := s.track(ctx, gameID, keys...); err != nil {
		return storeErr(err)
	}
	return nil
}

// Locker implements game.Locker as a Redis lease: SET NX with a short TTL
// so a crashed holder cannot wedge a category forever, polled with jitter
// until acquired. Release is compare-and-delete on the lease token so an
// expired lease is never released out from under a new holder.
type Locker struct {
	rdb      *redis.Client
	leaseTTL time.Duration
}

// NewLocker returns a Locker with the default 3s lease.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, leaseTTL: 3 * time.Second}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *Locker) Acquire(ctx context.Context, gameID uuid.UUID, category game.Category) (func(), error) {
	key := "tambola:lock:" + gameID.String() + ":" + string(category)
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.leaseTTL).Result()
		if err != nil {
			return nil, storeErr(err)
		}
		if ok {
			return func() {
				relCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(relCtx, l.rdb, []string{key}, token).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(5+rand.Intn(10)) * time.Millisecond):
		}
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", game.ErrStoreUnavailable, err)
}
