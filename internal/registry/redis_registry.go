package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"resonate-service/internal/domain/session"
)

// registerScript performs a capacity-checked insert atomically. A plain
// read-then-write here would let two devices racing at the last free slot
// both believe they were admitted; doing the check and the write in one Lua
// script closes that window.
//
// KEYS[1] = account hash key
// ARGV[1] = session id, ARGV[2] = entry JSON, ARGV[3] = slots,
// ARGV[4] = force ("1"/"0"), ARGV[5] = key TTL seconds
//
// Returns 1 when admitted, 0 when the account is at capacity.
var registerScript = redis.NewScript(`
local key = KEYS[1]
local sid = ARGV[1]
local entry = ARGV[2]
local slots = tonumber(ARGV[3])
local force = ARGV[4] == "1"
local ttl = tonumber(ARGV[5])

if redis.call('HEXISTS', key, sid) == 1 then
  redis.call('HSET', key, sid, entry)
  redis.call('EXPIRE', key, ttl)
  return 1
end

if redis.call('HLEN', key) < slots then
  redis.call('HSET', key, sid, entry)
  redis.call('EXPIRE', key, ttl)
  return 1
end

if force then
  local all = redis.call('HGETALL', key)
  local oldest = nil
  local oldestAt = nil
  for i = 1, #all, 2 do
    local e = cjson.decode(all[i+1])
    local at = tonumber(e.created_at_ms)
    if oldestAt == nil or at < oldestAt then
      oldest = all[i]
      oldestAt = at
    end
  end
  if oldest ~= nil then
    redis.call('HDEL', key, oldest)
  end
  redis.call('HSET', key, sid, entry)
  redis.call('EXPIRE', key, ttl)
  return 1
end

return 0
`)

// RedisRegistry keeps one hash per account, field = session id, value =
// JSON-encoded session.Entry.
type RedisRegistry struct {
	client     *redis.Client
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewRedisRegistry(client *redis.Client, sessionTTL time.Duration, logger *zap.Logger) *RedisRegistry {
	return &RedisRegistry{client: client, sessionTTL: sessionTTL, logger: logger}
}

func (r *RedisRegistry) key(accountID string) string {
	return fmt.Sprintf("device_sessions:%s", accountID)
}

func newEntry(accountID, sessionID, deviceInfo string, now time.Time) session.Entry {
	return session.Entry{
		SessionID:   sessionID,
		AccountID:   accountID,
		DeviceInfo:  deviceInfo,
		CreatedAt:   now,
		CreatedAtMS: now.UnixMilli(),
		UpdatedAt:   now,
	}
}

func (r *RedisRegistry) Register(ctx context.Context, accountID, sessionID, deviceInfo string, slots int, force bool) (*RegisterResult, error) {
	if slots < 1 {
		slots = 1
	}

	entry := newEntry(accountID, sessionID, deviceInfo, time.Now().UTC())
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal registry entry: %w", err)
	}

	forceArg := "0"
	if force {
		forceArg = "1"
	}

	admitted, err := registerScript.Run(ctx, r.client,
		[]string{r.key(accountID)},
		sessionID, string(raw), slots, forceArg, int(r.sessionTTL.Seconds()),
	).Int()
	if err != nil {
		return nil, fmt.Errorf("registry register failed: %w", err)
	}

	if admitted == 1 {
		return &RegisterResult{Admitted: true}, nil
	}

	devices, err := r.ActiveDevices(ctx, accountID)
	if err != nil {
		r.logger.Warn("failed to list occupying devices after capacity refusal",
			zap.String("account_id", accountID), zap.Error(err))
	}
	return &RegisterResult{Admitted: false, ActiveDevices: devices}, nil
}

func (r *RedisRegistry) QueryActive(ctx context.Context, accountID, sessionID string) (bool, error) {
	present, err := r.client.HExists(ctx, r.key(accountID), sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("registry query failed: %w", err)
	}
	return present, nil
}

func (r *RedisRegistry) Disconnect(ctx context.Context, accountID, targetSessionID string) error {
	if err := r.client.HDel(ctx, r.key(accountID), targetSessionID).Err(); err != nil {
		return fmt.Errorf("registry disconnect failed: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Delete(ctx context.Context, accountID, sessionID string) error {
	if err := r.client.HDel(ctx, r.key(accountID), sessionID).Err(); err != nil {
		return fmt.Errorf("registry delete failed: %w", err)
	}
	return nil
}

func (r *RedisRegistry) ActiveDevices(ctx context.Context, accountID string) ([]session.ActiveDevice, error) {
	raw, err := r.client.HGetAll(ctx, r.key(accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("registry list failed: %w", err)
	}

	devices := make([]session.ActiveDevice, 0, len(raw))
	for sid, v := range raw {
		var entry session.Entry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			r.logger.Warn("skipping corrupt registry entry",
				zap.String("account_id", accountID), zap.String("session_id", sid))
			continue
		}
		devices = append(devices, session.ActiveDevice{
			SessionID:   entry.SessionID,
			DeviceInfo:  entry.DeviceInfo,
			ConnectedAt: entry.CreatedAt,
		})
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ConnectedAt.Before(devices[j].ConnectedAt)
	})
	return devices, nil
}
