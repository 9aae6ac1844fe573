// File: sessiontoken.store.redis.imp.go

package sessiontoken

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript reads and deletes a session hash in one atomic step so that
// concurrent rotations of the same session cannot both observe it.
var takeScript = redis.NewScript(`
local attrs = redis.call('HGETALL', KEYS[1])
if #attrs == 0 then
  return attrs
end
redis.call('DEL', KEYS[1])
return attrs
`)

// consumeScript compares the supplied code against the stored one and
// deletes the record only on a full match. Return codes: 0 mismatch or
// absent, 1 code matched but loginId gone, 2 consumed (loginId follows).
var consumeScript = redis.NewScript(`
local expect = redis.call('HGET', KEYS[1], 'code')
if not expect or expect ~= ARGV[1] then
  return {0, ''}
end
local login = redis.call('HGET', KEYS[1], 'loginId')
if not login or login == '' then
  return {1, ''}
end
redis.call('DEL', KEYS[1])
return {2, login}
`)

// RedisStore is the Redis-backed implementation of Store. Sessions and
// challenges live as multi-field hash records with per-key TTLs; Redis is
// the sole enforcer of expiry.
type RedisStore struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewRedisStore creates a Redis-backed store. A non-positive sessionTTL
// falls back to the 7-day default.
func NewRedisStore(client *redis.Client, sessionTTL time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisStore{client: client, sessionTTL: sessionTTL}, nil
}

// Put writes the session record and sets its TTL. A record that cannot get
// a TTL is not durably created: the half-written hash is deleted and the
// write reported failed so the caller can retry.
func (r *RedisStore) Put(ctx context.Context, sessionID string, attrs SessionAttributes) error {
	if sessionID == "" {
		return fmt.Errorf("session id cannot be empty")
	}

	fields := map[string]interface{}{
		fieldLoginID: attrs.LoginID,
		fieldRole:    attrs.Role,
		fieldUserID:  attrs.UserID,
	}
	if err := r.client.HSet(ctx, sessionID, fields).Err(); err != nil {
		return wrapStoreErr("write session", err)
	}

	ok, err := r.client.Expire(ctx, sessionID, r.sessionTTL).Result()
	if err == nil && !ok {
		err = fmt.Errorf("key vanished before TTL was set")
	}
	if err != nil {
		if delErr := r.client.Del(ctx, sessionID).Err(); delErr != nil {
			return wrapStoreErr("roll back session without TTL", delErr)
		}
		return wrapStoreErr("set session TTL", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (SessionAttributes, error) {
	fields, err := r.client.HGetAll(ctx, sessionID).Result()
	if err != nil {
		return SessionAttributes{}, wrapStoreErr("read session", err)
	}
	return attrsFromFields(fields)
}

func (r *RedisStore) Take(ctx context.Context, sessionID string) (SessionAttributes, error) {
	res, err := takeScript.Run(ctx, r.client, []string{sessionID}).Result()
	if err != nil {
		return SessionAttributes{}, wrapStoreErr("take session", err)
	}

	raw, ok := res.([]interface{})
	if !ok {
		return SessionAttributes{}, fmt.Errorf("take session: unexpected reply type %T", res)
	}
	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		field, _ := raw[i].(string)
		value, _ := raw[i+1].(string)
		fields[field] = value
	}
	return attrsFromFields(fields)
}

// Remove deletes the session record. Deleting a non-existent key succeeds;
// infrastructure failures are reported so callers can retry or alert.
func (r *RedisStore) Remove(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionID).Err(); err != nil {
		return wrapStoreErr("delete session", err)
	}
	return nil
}

func (r *RedisStore) PutChallenge(ctx context.Context, key, loginID, code string, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("challenge key cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	fields := map[string]interface{}{
		fieldLoginID: loginID,
		fieldCode:    code,
	}
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return wrapStoreErr("write challenge", err)
	}

	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err == nil && !ok {
		err = fmt.Errorf("key vanished before TTL was set")
	}
	if err != nil {
		if delErr := r.client.Del(ctx, key).Err(); delErr != nil {
			return wrapStoreErr("roll back challenge without TTL", delErr)
		}
		return wrapStoreErr("set challenge TTL", err)
	}
	return nil
}

func (r *RedisStore) ChallengeExists(ctx context.Context, key string) (bool, error) {
	values, err := r.client.HMGet(ctx, key, fieldCode, fieldLoginID).Result()
	if err != nil {
		return false, wrapStoreErr("read challenge", err)
	}
	code, _ := values[0].(string)
	login, _ := values[1].(string)
	return code != "" && login != "", nil
}

func (r *RedisStore) ConsumeChallenge(ctx context.Context, key, code string) (string, error) {
	res, err := consumeScript.Run(ctx, r.client, []string{key}, code).Result()
	if err != nil {
		return "", wrapStoreErr("consume challenge", err)
	}

	reply, ok := res.([]interface{})
	if !ok || len(reply) != 2 {
		return "", fmt.Errorf("consume challenge: unexpected reply type %T", res)
	}
	status, _ := reply[0].(int64)
	switch status {
	case 0:
		return "", ErrActivationFailed
	case 1:
		return "", ErrChallengeConsumed
	}
	loginID, _ := reply[1].(string)
	return loginID, nil
}

// attrsFromFields decodes a session hash. An empty map means absent or
// expired and decodes to empty attributes.
func attrsFromFields(fields map[string]string) (SessionAttributes, error) {
	if len(fields) == 0 {
		return SessionAttributes{}, nil
	}

	attrs := SessionAttributes{
		LoginID: fields[fieldLoginID],
		Role:    fields[fieldRole],
	}
	if raw, ok := fields[fieldUserID]; ok && raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return SessionAttributes{}, fmt.Errorf("corrupt userId field: %w", err)
		}
		attrs.UserID = userID
	}
	return attrs, nil
}
