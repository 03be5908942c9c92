package trimmer

// Stage is a step of the trimming pipeline.
type Stage int

const (
	StageIdle Stage = iota
	StageCropping
	StageDetecting
	StageMerging
	StageExporting
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCropping:
		return "cropping"
	case StageDetecting:
		return "detecting"
	case StageMerging:
		return "merging"
	case StageExporting:
		return "exporting"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}
