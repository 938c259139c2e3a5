package bucketer

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// seed matches the value used by the other SDKs in the product family.
// Changing it would reshuffle every user into a different bucket.
const seed uint32 = 1

const (
	// MaxTrafficValue is the scale for campaign-level traffic checks.
	MaxTrafficValue = 100
	// MaxBucketValue is the scale for variation-level allocation.
	MaxBucketValue = 10000
)

// Hash returns the MurmurHash3 x86-32 value of key as an unsigned 32-bit
// integer. It is a total function: the empty string hashes to a fixed,
// well-known value.
func Hash(key string) uint32 {
	return murmur3.Sum32WithSeed([]byte(key), seed)
}

// BucketValue maps a 32-bit hash onto the inclusive range [1, maxValue].
// The arithmetic is performed in IEEE-754 double precision and must stay
// exactly as written: bucket values have to match the other SDKs bit for bit
// so that the same user lands in the same variation on every platform.
func BucketValue(hash uint32, maxValue, multiplier int) int {
	ratio := float64(hash) / 4294967296.0 // hash / 2^32
	value := int(math.Floor((float64(maxValue)*ratio + 1) * float64(multiplier)))

	// Ranges start at 1, so bucket 0 must never escape this function.
	if value < 1 {
		return 1
	}
	if max := maxValue * multiplier; value > max {
		return max
	}
	return value
}

// ValueForUser buckets a user-level key on the 1..100 scale. It decides
// whether a user falls inside a campaign's traffic percentage.
func ValueForUser(bucketKey string) int {
	return BucketValue(Hash(bucketKey), MaxTrafficValue, 1)
}

// ValueForVariation buckets a salted key on the 1..10000 scale used for
// variation allocation within a campaign.
func ValueForVariation(bucketKey string) int {
	return BucketValue(Hash(bucketKey), MaxBucketValue, 1)
}
