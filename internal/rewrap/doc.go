// Package rewrap normalizes source containers before the upscale stage runs.
//
// The policy is deliberately conservative: every source is re-encoded to a
// ProRes/QuickTime intermediate, including sources already in the target
// container and codec, so the color tags of everything entering the filter
// stage are uniform. The decision logic records why a rewrap happens but the
// tie-break is always "rewrap".
package rewrap
