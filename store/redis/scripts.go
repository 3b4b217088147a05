package redis

import "github.com/redis/go-redis/v9"

// KEYS[1]=email index, KEYS[2]=account hash, KEYS[3]=account set
// ARGV[1]=id followed by hash field/value pairs.
const createScript = `
if redis.call("SETNX", KEYS[1], ARGV[1]) == 0 then
  return 0
end
local fields = {}
for i = 2, #ARGV do
  fields[#fields + 1] = ARGV[i]
end
redis.call("HSET", KEYS[2], unpack(fields))
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`

// Applies one failed attempt. Mirrors account.LockState.Fail.
// KEYS[1]=account hash, KEYS[2]=lock index
// ARGV[1]=id, ARGV[2]=now ms, ARGV[3]=max attempts, ARGV[4]=lock duration ms
// Returns {attempts, lock_until_ms} or {-1, 0} when the account is missing.
const incrementAttemptsScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {-1, 0}
end
local now = tonumber(ARGV[2])
local attempts = tonumber(redis.call("HGET", KEYS[1], "attempts") or "0")
local lock = tonumber(redis.call("HGET", KEYS[1], "lock_until") or "0")

if lock > 0 and lock <= now then
  redis.call("HSET", KEYS[1], "attempts", 1, "lock_until", 0, "updated", now)
  redis.call("ZREM", KEYS[2], ARGV[1])
  return {1, 0}
end

attempts = attempts + 1
if attempts >= tonumber(ARGV[3]) and lock == 0 then
  lock = now + tonumber(ARGV[4])
  redis.call("ZADD", KEYS[2], lock, ARGV[1])
end
redis.call("HSET", KEYS[1], "attempts", attempts, "lock_until", lock, "updated", now)
return {attempts, lock}
`

// KEYS[1]=account hash, KEYS[2]=lock index
// ARGV[1]=id, ARGV[2]=now ms, ARGV[3]="1" to stamp last_login
const clearLockScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "attempts", 0, "lock_until", 0, "updated", ARGV[2])
if ARGV[3] == "1" then
  redis.call("HSET", KEYS[1], "last_login", ARGV[2])
end
redis.call("ZREM", KEYS[2], ARGV[1])
return 1
`

// KEYS[1]=lock index; ARGV[1]=now ms, ARGV[2]=account key prefix
const unlockExpiredScript = `
local now = tonumber(ARGV[1])
local ids = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local unlocked = 0
for _, id in ipairs(ids) do
  local key = ARGV[2] .. id
  local lock = tonumber(redis.call("HGET", key, "lock_until") or "0")
  if lock > 0 and lock <= now then
    redis.call("HSET", key, "attempts", 0, "lock_until", 0, "updated", now)
    unlocked = unlocked + 1
  end
  redis.call("ZREM", KEYS[1], id)
end
return unlocked
`

// KEYS[1]=account hash, KEYS[2]=token set; ARGV[1]=expiry ms, ARGV[2]=digest
const addTokenScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("ZADD", KEYS[2], ARGV[1], ARGV[2])
return 1
`

// KEYS[1]=account hash; ARGV[1]=hash, ARGV[2]=now ms
const updatePasswordScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "hash", ARGV[1], "pwd_changed", ARGV[2], "updated", ARGV[2])
return 1
`

// Sets field/value pairs on an existing account only.
// KEYS[1]=account hash; ARGV = field/value pairs
const setFieldsScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`

var (
	setFieldsLua         = redis.NewScript(setFieldsScript)
	createLua            = redis.NewScript(createScript)
	incrementAttemptsLua = redis.NewScript(incrementAttemptsScript)
	clearLockLua         = redis.NewScript(clearLockScript)
	unlockExpiredLua     = redis.NewScript(unlockExpiredScript)
	addTokenLua          = redis.NewScript(addTokenScript)
	updatePasswordLua    = redis.NewScript(updatePasswordScript)
)
