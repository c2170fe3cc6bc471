// Package count turns per-frame tracker output into boundary-crossing
// events and running occupancy totals.
//
// A Counter owns one boundary (a directed line segment or a vertical
// zone) and one crossing policy. Each frame the caller hands it the
// tracker's object map plus the frame dimensions; the Counter resolves
// the fractional boundary into pixels, feeds each identity's centroid
// to the policy, and emits at most one CrossingEvent per identity for
// the lifetime of that identity. Counts are mutated only here.
//
// The package performs no I/O. Persistence and alerting consume the
// returned events after Update returns.
package count
