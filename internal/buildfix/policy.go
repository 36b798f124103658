package buildfix

// Decision is the outcome of the auto-apply policy.
type Decision string

const (
	// Applied means the single code block replaces the single candidate file.
	Applied Decision = "applied"
	// SkippedAmbiguousFiles means files and blocks do not map one to one.
	SkippedAmbiguousFiles Decision = "skipped_ambiguous_files"
	// SkippedNoCodeBlock means the fixer response had no code block.
	SkippedNoCodeBlock Decision = "skipped_no_code_block"
)

// ApplyPolicy decides whether a fix can be applied without review: only
// exactly one file and exactly one block qualify.
func ApplyPolicy(files, blocks int) Decision {
	switch {
	case blocks == 0:
		return SkippedNoCodeBlock
	case files == 1 && blocks == 1:
		return Applied
	default:
		return SkippedAmbiguousFiles
	}
}
