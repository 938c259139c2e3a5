// Package gateway resolves the location and device attributes that segment
// expressions target but callers rarely supply directly.
//
// The decision engine consults a Resolver only on demand: when a campaign's
// segments compare against location or device fields and the user context
// does not already carry them. HTTPResolver asks the gateway service to
// resolve an (ip, user agent) pair into geo and device attributes;
// LocalResolver derives device attributes from the user agent alone, without
// a network round-trip, and is the fallback when no gateway URL is
// configured.
//
//	resolver := gateway.NewHTTPResolver(baseURL)
//	resolved, err := resolver.Resolve(ctx, gateway.Request{
//		IP:        "203.0.113.7",
//		UserAgent: r.UserAgent(),
//	})
package gateway
