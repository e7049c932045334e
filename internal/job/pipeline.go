package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/maauso/dubsync/internal/media"
	"github.com/maauso/dubsync/internal/metrics"
	"github.com/maauso/dubsync/internal/timeline"
)

// pipelineState carries intermediate results between stages of one run.
type pipelineState struct {
	job *Job

	masterPCM string
	dubPCM    string
	manifest  string
	output    string

	master   media.Info
	dub      media.Info
	silences []timeline.Silence
	segments []timeline.Segment
}

type pipelineStage struct {
	name Stage
	// progress is reported once the stage succeeds; 0 leaves it unchanged.
	progress int
	run      func(ctx context.Context, st *pipelineState) error
}

func (s *SyncService) stages() []pipelineStage {
	return []pipelineStage{
		{StageValidate, 10, s.validate},
		{StageExtractMaster, 20, s.extractMaster},
		{StageExtractDub, 30, s.extractDub},
		{StageProbe, 0, s.probe},
		{StageDetectSilence, 40, s.detectSilence},
		{StageTimeline, 50, s.buildTimeline},
		{StageManifest, 80, s.writeManifest},
		{StageRender, 90, s.render},
		{StagePublish, 95, s.publish},
	}
}

// execute runs every stage in order and stops at the first failure.
// There are no retries.
func (s *SyncService) execute(ctx context.Context, j *Job) error {
	st := &pipelineState{job: j}

	for _, stage := range s.stages() {
		started := time.Now()
		err := stage.run(ctx, st)
		metrics.StageDuration.WithLabelValues(string(stage.name)).Observe(time.Since(started).Seconds())
		if err != nil {
			return &StageError{Stage: stage.name, Err: err}
		}
		if stage.progress > 0 {
			j.UpdateProgress(stage.progress)
		}
		s.save(ctx, j)
	}

	s.cleanup(ctx, st)
	return nil
}

func (s *SyncService) validate(_ context.Context, st *pipelineState) error {
	j := st.job
	s.logf(j, "Validating files: master=%s, dub=%s", j.MasterPath, j.DubPath)

	for _, path := range []string{j.MasterPath, j.DubPath} {
		if err := checkExists(path); err != nil {
			return err
		}
	}

	// The concat demuxer resolves relative entries against the manifest's
	// directory, so every path written into it is absolute.
	workDir, err := filepath.Abs(j.WorkDir)
	if err != nil {
		return fmt.Errorf("resolve work dir: %w", err)
	}
	info, err := os.Stat(workDir)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInputNotFound, workDir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: work dir %s is not a directory", timeline.ErrValidation, workDir)
	}

	st.masterPCM = filepath.Join(workDir, MasterPCMName)
	st.dubPCM = filepath.Join(workDir, DubPCMName)
	st.manifest = filepath.Join(workDir, ManifestName)
	st.output = filepath.Join(workDir, s.outputName)

	s.logf(j, "Files validated successfully.")
	return nil
}

func (s *SyncService) extractMaster(ctx context.Context, st *pipelineState) error {
	s.logf(st.job, "Extracting PCM from master.")
	if err := s.extractor.ExtractPCM(ctx, st.job.MasterPath, st.masterPCM); err != nil {
		return err
	}
	s.logf(st.job, "Master PCM extracted.")
	return nil
}

func (s *SyncService) extractDub(ctx context.Context, st *pipelineState) error {
	s.logf(st.job, "Extracting PCM from dub.")
	if err := s.extractor.ExtractPCM(ctx, st.job.DubPath, st.dubPCM); err != nil {
		return err
	}
	s.logf(st.job, "Dub PCM extracted.")
	return nil
}

func (s *SyncService) probe(ctx context.Context, st *pipelineState) error {
	master, err := s.prober.Probe(ctx, st.job.MasterPath)
	if err != nil {
		return err
	}
	dub, err := s.prober.Probe(ctx, st.job.DubPath)
	if err != nil {
		return err
	}

	st.master, st.dub = master, dub
	st.job.SetMediaInfo(master, dub)
	s.logf(st.job, "Master duration: %gs, Dub duration: %gs, Channels: %d",
		master.Duration, dub.Duration, master.Channels)
	return nil
}

func (s *SyncService) detectSilence(ctx context.Context, st *pipelineState) error {
	s.logf(st.job, "Detecting silences in dub.")
	silences, err := s.detector.DetectSilence(ctx, st.dubPCM, s.silenceOpts)
	if err != nil {
		return err
	}

	st.silences = silences
	s.logf(st.job, "Found %d silence intervals: %s", len(silences), formatSilences(silences))
	return nil
}

func (s *SyncService) buildTimeline(_ context.Context, st *pipelineState) error {
	s.logf(st.job, "Building timeline segments.")

	nonSilent, err := timeline.Merge(st.silences, st.dub.Duration)
	if err != nil {
		return err
	}
	s.logf(st.job, "Non-silent intervals in dub: %s", formatIntervals(nonSilent))

	segments, err := timeline.Build(nonSilent, st.master.Duration, st.dub.Duration)
	if err != nil {
		return err
	}
	for _, seg := range segments {
		s.logf(st.job, "Added %s segment: %g to %g", seg.Source, seg.In, seg.Out)
	}

	st.segments = segments
	st.job.SetSegments(segments)
	metrics.SegmentsPerTimeline.Observe(float64(len(segments)))
	return nil
}

func (s *SyncService) writeManifest(_ context.Context, st *pipelineState) error {
	s.logf(st.job, "Creating concat input file: %s", st.manifest)

	f, err := os.Create(st.manifest)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	err = media.WriteManifest(f, st.segments, map[timeline.Source]string{
		timeline.SourceMaster: st.masterPCM,
		timeline.SourceDub:    st.dubPCM,
	})
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close manifest: %w", closeErr)
	}
	if err != nil {
		return err
	}

	s.logf(st.job, "Concat input file created.")
	return nil
}

func (s *SyncService) render(ctx context.Context, st *pipelineState) error {
	s.logf(st.job, "Rendering final output: %s", st.output)

	opts := s.renderOpts
	opts.Channels = st.master.Channels
	if err := s.renderer.Render(ctx, st.manifest, st.output, opts); err != nil {
		return err
	}

	st.job.SetOutput(st.output, "")
	s.logf(st.job, "Final output rendered successfully.")
	return nil
}

func (s *SyncService) publish(ctx context.Context, st *pipelineState) error {
	if !st.job.PushToS3 {
		return nil
	}

	key := st.job.ID + "/" + s.outputName
	s.logf(st.job, "Publishing output as %s.", key)
	url, err := s.storage.Publish(ctx, key, st.output)
	if err != nil {
		return err
	}

	st.job.SetOutput(st.output, url)
	s.logf(st.job, "Output published: %s", url)
	return nil
}

// cleanup removes intermediates after a successful render. Failures are
// logged on the job but do not fail it.
func (s *SyncService) cleanup(ctx context.Context, st *pipelineState) {
	if s.keepIntermediates {
		return
	}

	started := time.Now()
	err := s.storage.Cleanup(ctx, []string{st.masterPCM, st.dubPCM, st.manifest})
	metrics.StageDuration.WithLabelValues(string(StageCleanup)).Observe(time.Since(started).Seconds())
	if err != nil {
		s.logf(st.job, "Failed to remove intermediates: %v", err)
		return
	}
	s.logf(st.job, "Intermediate files removed.")
}

func formatSilences(silences []timeline.Silence) string {
	parts := make([]string, len(silences))
	for i, s := range silences {
		parts[i] = fmt.Sprintf("(%g, %g)", s.Start, s.End)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatIntervals(intervals []timeline.Interval) string {
	parts := make([]string, len(intervals))
	for i, iv := range intervals {
		parts[i] = fmt.Sprintf("(%g, %g)", iv.Start, iv.End)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
