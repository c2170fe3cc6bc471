// Package track owns identity tracking for the detection pipeline.
//
// Responsibilities: frame-to-frame association of person detections,
// identity lifecycle (registration, update, disappearance, removal),
// and bounded trajectory history per identity.
// Key types: Detection, TrackInfo, Tracker.
//
// The package never inspects counting state; the counter consumes the
// map returned by Update and nothing else. No SQL/database code is
// allowed in this package.
package track
