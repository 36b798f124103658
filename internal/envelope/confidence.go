package envelope

// TierForBackend maps the backend that answered a query to a confidence tier.
//
//   - scip, script, compiler -> high
//   - treesitter   -> medium
//   - anything else (text scan, heuristics) -> low
func TierForBackend(backend string) ConfidenceTier {
	switch backend {
	case "scip", "script", "compiler":
		return TierHigh
	case "treesitter":
		return TierMedium
	default:
		return TierLow
	}
}
