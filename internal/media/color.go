// Package media holds the fixed color contract shared by the rewrap encode,
// the upscale encode, and output verification.
package media

import "strings"

// Target color tags for every artifact the pipeline writes. ffmpeg accepts
// the numeric forms on the command line; probes may report either the
// numeric value or the SMPTE alias.
const (
	ColorPrimaries = "12" // smpte432 (DCI-P3 D65)
	ColorTransfer  = "11" // smpte428
	ColorMatrix    = "12" // smpte432
	ColorRange     = "tv"
)

var (
	primariesAliases = []string{"smpte432", "12"}
	transferAliases  = []string{"smpte428", "11"}
	matrixAliases    = []string{"smpte432", "12"}
)

// MatchesTargetColor reports whether probed primaries/transfer/matrix tags
// all match the target color space. Matching is a case-insensitive substring
// check against the accepted aliases, so "smpte432" and "12" both pass.
func MatchesTargetColor(primaries, transfer, matrix string) bool {
	return matchesAny(primaries, primariesAliases) &&
		matchesAny(transfer, transferAliases) &&
		matchesAny(matrix, matrixAliases)
}

func matchesAny(value string, aliases []string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(value))
	if cleaned == "" {
		return false
	}
	for _, alias := range aliases {
		if strings.Contains(cleaned, alias) {
			return true
		}
	}
	return false
}
