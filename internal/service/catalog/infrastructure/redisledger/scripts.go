package redisledger

// KEYS[1]: inventory hash of one product, e.g. inventory:{B1}
// ARGV[1]: quantity, ARGV[2]: update time in unix millis
// Reply: {code, available, reserved}. code 0 = unknown product,
// 1 = applied, 2 = release clamped to zero, -1 = not enough stock.

const reserveScript = `
if redis.call('exists', KEYS[1]) == 0 then
    return {0, 0, 0}
end
local available = tonumber(redis.call('hget', KEYS[1], 'available') or '0')
local reserved = tonumber(redis.call('hget', KEYS[1], 'reserved') or '0')
local qty = tonumber(ARGV[1])
if qty > available - reserved then
    return {-1, available, reserved}
end
reserved = reserved + qty
redis.call('hset', KEYS[1], 'reserved', reserved, 'updated', ARGV[2])
return {1, available, reserved}
`

const releaseScript = `
if redis.call('exists', KEYS[1]) == 0 then
    return {0, 0, 0}
end
local available = tonumber(redis.call('hget', KEYS[1], 'available') or '0')
local reserved = tonumber(redis.call('hget', KEYS[1], 'reserved') or '0')
local qty = tonumber(ARGV[1])
local code = 1
if qty > reserved then
    reserved = 0
    code = 2
else
    reserved = reserved - qty
end
redis.call('hset', KEYS[1], 'reserved', reserved, 'updated', ARGV[2])
return {code, available, reserved}
`

const deductScript = `
if redis.call('exists', KEYS[1]) == 0 then
    return {0, 0, 0}
end
local available = tonumber(redis.call('hget', KEYS[1], 'available') or '0')
local reserved = tonumber(redis.call('hget', KEYS[1], 'reserved') or '0')
local qty = tonumber(ARGV[1])
if qty > reserved then
    return {-1, available, reserved}
end
reserved = reserved - qty
available = available - qty
redis.call('hset', KEYS[1], 'available', available, 'reserved', reserved, 'updated', ARGV[2])
return {1, available, reserved}
`

const restoreScript = `
if redis.call('exists', KEYS[1]) == 0 then
    return {0, 0, 0}
end
local available = tonumber(redis.call('hget', KEYS[1], 'available') or '0')
local reserved = tonumber(redis.call('hget', KEYS[1], 'reserved') or '0')
local qty = tonumber(ARGV[1])
reserved = reserved + qty
available = available + qty
redis.call('hset', KEYS[1], 'available', available, 'reserved', reserved, 'updated', ARGV[2])
return {1, available, reserved}
`

// ARGV[1]: available, ARGV[2]: reserved, ARGV[3]: update time in unix millis.
// Reply: 1 when the counters were created, 0 when they already existed.
const seedScript = `
if redis.call('exists', KEYS[1]) == 1 then
    return 0
end
redis.call('hset', KEYS[1], 'available', ARGV[1], 'reserved', ARGV[2], 'updated', ARGV[3])
return 1
`
