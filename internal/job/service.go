package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maauso/dubsync/internal/media"
	"github.com/maauso/dubsync/internal/metrics"
	"github.com/maauso/dubsync/internal/storage"
)

var (
	// ErrJobRunning is returned by Start while another job is in flight.
	ErrJobRunning = errors.New("a sync job is already running")
	// ErrInputNotFound is returned when a master, dub or analyzed file does not exist.
	ErrInputNotFound = errors.New("input file not found")
	// ErrInputRequired is returned when a master or dub name is empty.
	ErrInputRequired = errors.New("master and dub names are required")
)

// Intermediate file names written to the working directory.
const (
	MasterPCMName = "master_pcm.wav"
	DubPCMName    = "dub_pcm.wav"
	ManifestName  = "input.txt"
)

const defaultHistoryLimit = 50

// SyncInput contains the input parameters for a sync job.
type SyncInput struct {
	// MasterName is the master file, relative to WorkDir unless absolute.
	MasterName string
	// DubName is the dub file, relative to WorkDir unless absolute.
	DubName string
	// WorkDir receives the intermediates and the output. Empty means the
	// service default.
	WorkDir string
	// PushToS3 publishes the rendered output when storage supports it.
	PushToS3 bool
}

// SyncService owns the current sync job and runs the pipeline that
// extracts PCM, detects silences in the dub, builds the timeline and
// renders the synchronized output.
type SyncService struct {
	repo      Repository
	prober    media.Prober
	extractor media.Extractor
	detector  media.SilenceDetector
	renderer  media.Renderer
	storage   storage.Storage
	logger    *slog.Logger

	workDir           string
	silenceOpts       media.SilenceOpts
	renderOpts        media.RenderOpts
	outputName        string
	keepIntermediates bool
	historyLimit      int

	mu      sync.Mutex
	current *Job
}

// ServiceOption configures a SyncService.
type ServiceOption func(*SyncService)

// WithWorkDir sets the working directory used when a request names none.
func WithWorkDir(dir string) ServiceOption {
	return func(s *SyncService) {
		if dir != "" {
			s.workDir = dir
		}
	}
}

// WithSilenceOpts sets the silence detection threshold and minimum length.
func WithSilenceOpts(opts media.SilenceOpts) ServiceOption {
	return func(s *SyncService) {
		s.silenceOpts = opts
	}
}

// WithRenderOpts sets the output codec and bitrate. Channels is always
// taken from the probed master.
func WithRenderOpts(opts media.RenderOpts) ServiceOption {
	return func(s *SyncService) {
		s.renderOpts = opts
	}
}

// WithOutputName sets the rendered file name.
func WithOutputName(name string) ServiceOption {
	return func(s *SyncService) {
		if name != "" {
			s.outputName = name
		}
	}
}

// WithKeepIntermediates controls whether PCM files and the manifest
// survive a successful run.
func WithKeepIntermediates(keep bool) ServiceOption {
	return func(s *SyncService) {
		s.keepIntermediates = keep
	}
}

// WithHistoryLimit caps how many finished jobs the repository keeps.
func WithHistoryLimit(n int) ServiceOption {
	return func(s *SyncService) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// NewSyncService creates a new SyncService.
func NewSyncService(
	repo Repository,
	prober media.Prober,
	extractor media.Extractor,
	detector media.SilenceDetector,
	renderer media.Renderer,
	store storage.Storage,
	logger *slog.Logger,
	opts ...ServiceOption,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = storage.NewLocalStorage()
	}
	s := &SyncService{
		repo:      repo,
		prober:    prober,
		extractor: extractor,
		detector:  detector,
		renderer:  renderer,
		storage:   store,
		logger:    logger,
		workDir:   ".",
		silenceOpts: media.SilenceOpts{
			NoiseDB:     -60,
			MinDuration: 0.5,
		},
		renderOpts: media.RenderOpts{
			Codec:   "eac3",
			Bitrate: "640k",
		},
		outputName:        "OUTPUT_SYNCED.eac3",
		keepIntermediates: true,
		historyLimit:      defaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates a job and runs it on a background goroutine.
// Returns ErrJobRunning if another job is still running; the running job is
// left untouched.
func (s *SyncService) Start(ctx context.Context, input SyncInput) (*Job, error) {
	j, err := s.begin(ctx, input)
	if err != nil {
		return nil, err
	}

	// The pipeline must outlive the request that started it.
	go func(ctx context.Context) {
		_ = s.run(ctx, j)
	}(context.WithoutCancel(ctx))

	return j.Clone(), nil
}

// Run creates a job and executes it in the foreground. The returned job is
// always non-nil once the job was created; err is the first stage failure.
func (s *SyncService) Run(ctx context.Context, input SyncInput) (*Job, error) {
	j, err := s.begin(ctx, input)
	if err != nil {
		return nil, err
	}
	err = s.run(ctx, j)
	return j.Clone(), err
}

// begin validates the request shape and performs the IDLE->RUNNING
// transition while holding the service lock.
func (s *SyncService) begin(ctx context.Context, input SyncInput) (*Job, error) {
	if input.MasterName == "" || input.DubName == "" {
		return nil, ErrInputRequired
	}
	if input.PushToS3 && !s.storage.CanPublish() {
		return nil, storage.ErrS3NotConfigured
	}
	workDir := input.WorkDir
	if workDir == "" {
		workDir = s.workDir
	}

	s.mu.Lock()
	if s.current != nil && s.current.GetState() == StateRunning {
		s.mu.Unlock()
		metrics.JobsTotal.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, ErrJobRunning
	}

	j := New()
	j.MasterPath = resolve(workDir, input.MasterName)
	j.DubPath = resolve(workDir, input.DubName)
	j.WorkDir = workDir
	j.PushToS3 = input.PushToS3
	if err := j.Start(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.current = j
	s.mu.Unlock()

	s.logger.Info("sync job started",
		slog.String("job_id", j.ID),
		slog.String("master", j.MasterPath),
		slog.String("dub", j.DubPath),
		slog.String("work_dir", workDir),
		slog.Bool("push_to_s3", input.PushToS3),
	)
	s.save(ctx, j)
	return j, nil
}

// Current returns a snapshot of the current or most recent job.
// Returns ErrJobNotFound if no job has been started.
func (s *SyncService) Current() (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, ErrJobNotFound
	}
	return s.current.Clone(), nil
}

// Logs returns the log lines of the current or most recent job.
func (s *SyncService) Logs() []string {
	j, err := s.Current()
	if err != nil {
		return []string{}
	}
	return j.Logs
}

// Progress returns the progress of the current or most recent job.
func (s *SyncService) Progress() int {
	j, err := s.Current()
	if err != nil {
		return 0
	}
	return j.Progress
}

// GetJob retrieves a job by ID. The live job is served from memory so
// readers see progress between repository saves.
func (s *SyncService) GetJob(ctx context.Context, id string) (*Job, error) {
	if j, err := s.Current(); err == nil && j.ID == id {
		return j, nil
	}
	return s.repo.FindByID(ctx, id)
}

// ListJobs returns the retained job history, newest first.
func (s *SyncService) ListJobs(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// Analyze probes a single file, resolved against workDir.
func (s *SyncService) Analyze(ctx context.Context, workDir, name string) (media.Info, error) {
	if workDir == "" {
		workDir = s.workDir
	}
	path := resolve(workDir, name)
	if err := checkExists(path); err != nil {
		return media.Info{}, err
	}
	return s.prober.Probe(ctx, path)
}

// run executes the pipeline and moves j to its terminal state.
func (s *SyncService) run(ctx context.Context, j *Job) error {
	logger := s.logger.With(slog.String("job_id", j.ID))
	start := time.Now()

	s.logf(j, "Starting audio synchronization process.")
	j.UpdateProgress(0)

	err := s.execute(ctx, j)
	if err != nil {
		var stageErr *StageError
		var stage Stage
		if errors.As(err, &stageErr) {
			stage = stageErr.Stage
		}
		j.AppendLog(fmt.Sprintf("Error during processing: %v", err))
		_ = j.Fail(stage, err.Error())
		metrics.JobsTotal.WithLabelValues(metrics.ResultFailed).Inc()
		logger.Error("sync job failed",
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
	} else {
		_ = j.Complete()
		metrics.JobsTotal.WithLabelValues(metrics.ResultDone).Inc()
		logger.Info("sync job completed",
			slog.String("output", j.Clone().OutputPath),
			slog.Duration("duration", time.Since(start)),
		)
	}
	j.AppendLog("Process completed.")

	s.save(ctx, j)
	s.pruneHistory(ctx)
	return err
}

// logf appends a line to the job log and mirrors it to the service logger.
func (s *SyncService) logf(j *Job, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	j.AppendLog(msg)
	s.logger.Info(msg, slog.String("job_id", j.ID))
}

func (s *SyncService) save(ctx context.Context, j *Job) {
	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save job",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
	}
}

// pruneHistory drops the oldest finished jobs beyond historyLimit.
func (s *SyncService) pruneHistory(ctx context.Context) {
	jobs, err := s.repo.List(ctx)
	if err != nil || len(jobs) <= s.historyLimit {
		return
	}
	for _, old := range jobs[s.historyLimit:] {
		if !old.IsTerminal() {
			continue
		}
		if err := s.repo.Delete(ctx, old.ID); err != nil && !errors.Is(err, ErrJobNotFound) {
			s.logger.Warn("failed to prune job",
				slog.String("job_id", old.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func resolve(workDir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(workDir, name)
}

func checkExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return nil
}
