// Package bucketer implements the deterministic hashing and bucketing scheme
// used to partition users across campaign traffic and variations.
//
// The hash is MurmurHash3 (x86, 32-bit) with a fixed seed, and bucket values
// are derived with double-precision arithmetic that is reproduced bit for bit
// by the SDKs on other platforms. The same user id therefore always resolves
// to the same bucket, everywhere, without coordination.
//
// Two call patterns exist: user-level bucketing on a 1..100 scale to gate a
// campaign's traffic percentage, and variation-level bucketing on a 1..10000
// scale with a salted key so that assignments for different campaigns are
// statistically independent:
//
//	if bucketer.ValueForUser(userID) <= campaign.PercentTraffic {
//		bucket := bucketer.ValueForVariation(fmt.Sprintf("%d_%s", campaign.ID, userID))
//		// scan variation ranges for bucket
//	}
package bucketer
