package job

import "fmt"

// Stage names one step of the sync pipeline.
type Stage string

const (
	StageValidate      Stage = "validate"
	StageExtractMaster Stage = "extract_master"
	StageExtractDub    Stage = "extract_dub"
	StageProbe         Stage = "probe"
	StageDetectSilence Stage = "detect_silence"
	StageTimeline      Stage = "timeline"
	StageManifest      Stage = "manifest"
	StageRender        Stage = "render"
	StagePublish       Stage = "publish"
	StageCleanup       Stage = "cleanup"
)

// StageError attributes a pipeline failure to the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
