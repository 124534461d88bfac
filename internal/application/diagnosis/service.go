// Package diagnosis orchestrates a diagnosis: evidence extraction, text
// normalization, feature analysis, precedent search and ranking, and
// advisory drafting.
package diagnosis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/domain/evidence"
	"github.com/turtacn/LawLens/internal/domain/precedent"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/LawLens/pkg/errors"
)

const reportCacheName = "report"

// Service is the diagnosis application service.
type Service interface {
	Diagnose(ctx context.Context, req Request) (*Report, error)
	Normalize(ctx context.Context, text string) (string, error)
	Submit(ctx context.Context, req Request) (string, error)
	HandleJob(ctx context.Context, job Job) (*JobResult, error)
	GetReport(ctx context.Context, id string) (*Report, error)
}

// Config tunes the service. Zero values fall back to package defaults.
type Config struct {
	PhonePlaceholder string
	YThreshold       float64
	SpeakerPrefix    string
	ConvictionBudget int
	SearchK          int
	Concurrency      int
	MaxEvidenceBytes int64
	Timeout          time.Duration
	CacheTTL         time.Duration
	SearchBackend    string
}

// ConfigFrom maps the application configuration onto Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		PhonePlaceholder: cfg.Pipeline.PhonePlaceholder,
		YThreshold:       cfg.Pipeline.YThreshold,
		SpeakerPrefix:    cfg.Pipeline.SpeakerPrefix,
		ConvictionBudget: cfg.Pipeline.ConvictionBudget,
		SearchK:          cfg.Pipeline.SearchK,
		Concurrency:      cfg.Pipeline.Concurrency,
		MaxEvidenceBytes: cfg.Pipeline.MaxEvidenceBytes,
		Timeout:          cfg.Pipeline.Timeout,
		CacheTTL:         cfg.Redis.DefaultTTL,
		SearchBackend:    cfg.Search.Backend,
	}
}

// Deps are the collaborators. Searcher is required; everything else is
// optional and its absence degrades the matching step.
type Deps struct {
	Detector   TextDetector
	Recognizer SpeechRecognizer
	Diarizer   Diarizer
	Searcher   PrecedentSearcher
	Analyzer   FeatureAnalyzer
	Advisor    Advisor
	Cache      ReportCache
	Reports    ReportRepository
	Store      EvidenceStore
	Jobs       JobPublisher
	Metrics    *prometheus.PipelineMetrics
	Logger     logging.Logger
}

type service struct {
	cfg        Config
	deps       Deps
	normalizer *evidence.Normalizer
	aligner    *evidence.Aligner
	ranker     *precedent.Ranker
	logger     logging.Logger
	now        func() time.Time
	newID      func() string
}

// NewService validates deps and returns a Service.
func NewService(cfg Config, deps Deps) (Service, error) {
	if deps.Searcher == nil {
		return nil, errors.New(errors.ErrCodeValidation, "diagnosis: precedent searcher is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.DefaultPipelineWorkers
	}
	if cfg.SearchK <= 0 {
		cfg.SearchK = precedent.DefaultSearchK
	}
	if cfg.YThreshold <= 0 {
		cfg.YThreshold = evidence.DefaultYThreshold
	}
	if cfg.SpeakerPrefix == "" {
		cfg.SpeakerPrefix = config.DefaultSpeakerPrefix
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = config.DefaultRedisTTL
	}
	if cfg.SearchBackend == "" {
		cfg.SearchBackend = "unknown"
	}

	var normOpts []evidence.NormalizerOption
	if cfg.PhonePlaceholder != "" {
		normOpts = append(normOpts, evidence.WithPhonePlaceholder(cfg.PhonePlaceholder))
	}

	return &service{
		cfg:        cfg,
		deps:       deps,
		normalizer: evidence.NewNormalizer(normOpts...),
		aligner:    evidence.NewAligner(cfg.SpeakerPrefix),
		ranker:     precedent.NewRanker(cfg.ConvictionBudget),
		logger:     deps.Logger.Named("diagnosis"),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}, nil
}

func (s *service) Normalize(_ context.Context, text string) (string, error) {
	cleaned := s.normalizer.Clean(text)
	if cleaned == "" {
		return "", errors.New(errors.ErrCodeEvidenceEmpty, "text is empty after normalization")
	}
	return cleaned, nil
}

func (s *service) Diagnose(ctx context.Context, req Request) (*Report, error) {
	return s.diagnose(ctx, s.newID(), req)
}

func (s *service) diagnose(ctx context.Context, id string, req Request) (report *Report, err error) {
	start := s.now()
	log := s.logger.With(logging.String("diagnosis_id", id))

	if err := s.validate(&req); err != nil {
		return nil, err
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	defer func() {
		status := "error"
		if report != nil {
			status = report.Status.String()
		}
		s.deps.Metrics.RecordDiagnosis(status, time.Since(start))
	}()

	if err := s.loadStoredEvidence(ctx, &req); err != nil {
		return nil, err
	}

	sections, err := s.extract(ctx, req)
	if err != nil {
		return nil, err
	}

	cleaned := s.normalizer.Clean(MergeSections(BuildSituation(req), sections))
	if cleaned == "" {
		return nil, errors.New(errors.ErrCodeEvidenceEmpty, "no text remains after normalization")
	}

	key := cacheKey(req, cleaned)
	if cached := s.cachedReport(ctx, key); cached != nil {
		// The cached body is shared; each request gets its own report ID.
		cached.ID = id
		cached.CreatedAt = s.now().UTC()
		s.save(ctx, cached)
		log.Info("diagnosis served from cache", logging.String("status", cached.Status.String()))
		return cached, nil
	}

	features := s.analyze(ctx, cleaned)
	query := SearchQuery(cleaned, features)

	scored, err := s.search(ctx, query)
	if err != nil {
		return nil, err
	}
	outcome := s.ranker.Rank(scored)

	report = &Report{
		ID:          id,
		Mode:        req.Mode,
		Status:      outcome.Status,
		CleanedText: cleaned,
		SearchQuery: query,
		Sections:    sections,
		Features:    features,
		Outcome:     outcome,
		CreatedAt:   s.now().UTC(),
	}
	report.Rows = BuildRows(outcome)
	report.AverageSimilarity = AverageSimilarity(report.Rows)
	report.Advice = s.advise(ctx, req, cleaned, outcome, features)
	report.Glossary = Glossary(report.Advice)
	if req.DraftComplaint {
		report.Complaint = s.draftComplaint(ctx, cleaned, outcome, features)
	}

	s.persist(ctx, key, report)

	log.Info("diagnosis completed",
		logging.String("status", report.Status.String()),
		logging.String("candidate_crime", features.CandidateCrime),
		logging.Int("candidates", len(scored)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (s *service) validate(req *Request) error {
	switch req.Mode {
	case "":
		req.Mode = ModeGeneral
	case ModeGeneral, ModeComments:
	default:
		return errors.New(errors.ErrCodeValidation, "unknown analysis mode").WithDetail(string(req.Mode))
	}
	// Later steps fill in or drop evidence data; keep the caller's slices intact.
	req.Images = slices.Clone(req.Images)
	req.Audio = slices.Clone(req.Audio)

	if req.Text == "" && !req.HasEvidence() {
		return errors.New(errors.ErrCodeEvidenceEmpty, "enter text or upload at least one evidence file")
	}

	limit := s.cfg.MaxEvidenceBytes
	for _, group := range [][]Evidence{req.Images, req.Audio} {
		for _, ev := range group {
			if len(ev.Data) == 0 && ev.ObjectKey == "" {
				return errors.New(errors.ErrCodeEvidenceEmpty, "evidence file is empty").WithDetail(ev.Name)
			}
			if limit > 0 && int64(len(ev.Data)) > limit {
				return errors.New(errors.ErrCodeEvidenceTooLarge, "evidence file exceeds size limit").
					WithDetail(fmt.Sprintf("%s: %d > %d bytes", ev.Name, len(ev.Data), limit))
			}
		}
	}
	return nil
}

// loadStoredEvidence fetches evidence that arrived as object keys.
func (s *service) loadStoredEvidence(ctx context.Context, req *Request) error {
	for _, group := range [][]Evidence{req.Images, req.Audio} {
		for i := range group {
			ev := &group[i]
			if len(ev.Data) > 0 || ev.ObjectKey == "" {
				continue
			}
			if s.deps.Store == nil {
				return errors.New(errors.ErrCodeFeatureDisabled, "evidence store is not configured").WithDetail(ev.ObjectKey)
			}
			data, err := s.deps.Store.GetEvidence(ctx, ev.ObjectKey)
			if err != nil {
				return err
			}
			ev.Data = data
		}
	}
	return nil
}

// extract runs OCR and transcription concurrently. Per-item failures become
// tagged section text; only cancellation aborts.
func (s *service) extract(ctx context.Context, req Request) ([]Section, error) {
	sections := make([]Section, len(req.Images)+len(req.Audio))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, img := range req.Images {
		i, img := i, img
		g.Go(func() error {
			sections[i] = s.extractImage(gctx, i+1, img)
			return nil
		})
	}
	offset := len(req.Images)
	for i, clip := range req.Audio {
		i, clip := i, clip
		g.Go(func() error {
			sections[offset+i] = s.extractAudio(gctx, i+1, clip)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTimeout, "evidence extraction interrupted")
	}
	return sections, nil
}

func (s *service) extractImage(ctx context.Context, index int, img Evidence) Section {
	sec := Section{Kind: sectionImage, Index: index, Name: img.Name}
	if s.deps.Detector == nil {
		return s.failSection(sec, errors.New(errors.ErrCodeFeatureDisabled, "text detection is not configured"))
	}

	start := s.now()
	fragments, err := s.deps.Detector.Detect(ctx, img.Data)
	s.deps.Metrics.RecordEngineCall("ocr", prometheus.Outcome(err), time.Since(start))
	if err != nil {
		return s.failSection(sec, err)
	}

	sec.Text = evidence.Reconstruct(fragments, s.cfg.YThreshold)
	s.deps.Metrics.RecordEvidence(sectionImage, prometheus.OutcomeSuccess)
	return sec
}

func (s *service) extractAudio(ctx context.Context, index int, clip Evidence) Section {
	sec := Section{Kind: sectionAudio, Index: index, Name: clip.Name}
	if s.deps.Recognizer == nil {
		return s.failSection(sec, errors.New(errors.ErrCodeFeatureDisabled, "speech recognition is not configured"))
	}

	start := s.now()
	segments, err := s.deps.Recognizer.Transcribe(ctx, clip.Data, clip.Name)
	s.deps.Metrics.RecordEngineCall("asr", prometheus.Outcome(err), time.Since(start))
	if err != nil {
		return s.failSection(sec, err)
	}

	turns, ok := s.diarize(ctx, clip)
	if ok {
		sec.Text = evidence.FormatLabeled(s.aligner.Align(segments, turns))
	} else {
		sec.Text = evidence.FormatPlain(segments)
	}
	s.deps.Metrics.RecordEvidence(sectionAudio, prometheus.OutcomeSuccess)
	return sec
}

// diarize reports false when the transcript should stay unlabeled.
func (s *service) diarize(ctx context.Context, clip Evidence) ([]evidence.Turn, bool) {
	if s.deps.Diarizer == nil {
		return nil, false
	}
	start := s.now()
	turns, err := s.deps.Diarizer.Diarize(ctx, clip.Data, clip.Name)
	switch {
	case errors.IsCode(err, errors.ErrCodeDiarizerUnavailable):
		s.deps.Metrics.RecordEngineCall("diarization", prometheus.OutcomeSkipped, time.Since(start))
		s.logger.Debug("diarization unavailable, using unlabeled transcript", logging.String("file", clip.Name))
		return nil, false
	case err != nil:
		s.deps.Metrics.RecordEngineCall("diarization", prometheus.OutcomeFailure, time.Since(start))
		s.logger.Warn("diarization failed, using unlabeled transcript", logging.String("file", clip.Name), logging.Err(err))
		return nil, false
	}
	s.deps.Metrics.RecordEngineCall("diarization", prometheus.OutcomeSuccess, time.Since(start))
	return turns, true
}

func (s *service) failSection(sec Section, err error) Section {
	s.logger.Warn("evidence extraction failed",
		logging.String("kind", sec.Kind),
		logging.Int("index", sec.Index),
		logging.String("file", sec.Name),
		logging.Err(err),
	)
	s.deps.Metrics.RecordEvidence(sec.Kind, prometheus.OutcomeFailure)
	sec.Error = err.Error()
	sec.Text = "(extraction failed: " + err.Error() + ")"
	return sec
}

func (s *service) analyze(ctx context.Context, cleaned string) Features {
	if s.deps.Analyzer == nil {
		return FailedFeatures("feature analysis is not configured")
	}
	start := s.now()
	f, err := s.deps.Analyzer.Analyze(ctx, cleaned)
	s.deps.Metrics.RecordEngineCall("analyzer", prometheus.Outcome(err), time.Since(start))
	if err != nil {
		s.logger.Warn("feature analysis failed", logging.Err(err))
		return FailedFeatures(err.Error())
	}
	if f.CandidateCrime == "" {
		f.CandidateCrime = AnalysisFailed
	}
	return f
}

func (s *service) search(ctx context.Context, query string) ([]precedent.ScoredCase, error) {
	start := s.now()
	scored, err := s.deps.Searcher.Search(ctx, query, s.cfg.SearchK)
	s.deps.Metrics.RecordSearch(s.cfg.SearchBackend, prometheus.Outcome(err), len(scored), time.Since(start))
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodePrecedentSearchFailed, "precedent search failed")
	}
	return scored, nil
}

func (s *service) advise(ctx context.Context, req Request, situation string, outcome precedent.RankedOutcome, f Features) string {
	if !outcome.HasPrecedent() {
		return NoPrecedentNotice
	}
	if s.deps.Advisor == nil {
		return ""
	}
	start := s.now()
	advice, err := s.deps.Advisor.Advise(ctx, AdviceRequest{Situation: situation, Mode: req.Mode, Outcome: outcome, Features: f})
	s.deps.Metrics.RecordEngineCall("advisor", prometheus.Outcome(err), time.Since(start))
	if err != nil {
		s.logger.Warn("advice generation failed", logging.Err(err))
		return ""
	}
	return advice
}

func (s *service) draftComplaint(ctx context.Context, situation string, outcome precedent.RankedOutcome, f Features) string {
	if s.deps.Advisor == nil {
		return ""
	}
	req := ComplaintRequest{Situation: situation, Features: f}
	if outcome.HasPrecedent() {
		main := outcome.Main
		req.Main = &main
	}
	start := s.now()
	draft, err := s.deps.Advisor.DraftComplaint(ctx, req)
	s.deps.Metrics.RecordEngineCall("complaint", prometheus.Outcome(err), time.Since(start))
	if err != nil {
		s.logger.Warn("complaint drafting failed", logging.Err(err))
		return ""
	}
	return draft
}

func cacheKey(req Request, cleaned string) string {
	return "report:" + QueryHash(string(req.Mode)+"\x00"+strconv.FormatBool(req.DraftComplaint)+"\x00"+cleaned)
}

func (s *service) cachedReport(ctx context.Context, key string) *Report {
	if s.deps.Cache == nil {
		return nil
	}
	var r Report
	err := s.deps.Cache.Get(ctx, key, &r)
	switch {
	case err == nil:
		s.deps.Metrics.RecordCache(reportCacheName, true)
		r.Cached = true
		return &r
	case errors.IsNotFound(err):
		s.deps.Metrics.RecordCache(reportCacheName, false)
	default:
		s.logger.Warn("report cache read failed", logging.Err(err))
	}
	return nil
}

// persist writes the report to the repository and cache. Failures are
// logged; the caller already has the report.
func (s *service) persist(ctx context.Context, key string, r *Report) {
	s.save(ctx, r)
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, r, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache report", logging.String("diagnosis_id", r.ID), logging.Err(err))
		}
	}
}

func (s *service) save(ctx context.Context, r *Report) {
	if s.deps.Reports == nil {
		return
	}
	if err := s.deps.Reports.Save(ctx, r); err != nil {
		s.logger.Warn("failed to save report", logging.String("diagnosis_id", r.ID), logging.Err(err))
	}
}

func (s *service) GetReport(ctx context.Context, id string) (*Report, error) {
	if s.deps.Reports == nil {
		return nil, errors.New(errors.ErrCodeFeatureDisabled, "report storage is not configured")
	}
	return s.deps.Reports.Get(ctx, id)
}

// Submit uploads evidence to the store and queues the diagnosis. It returns
// the job ID, which is also the eventual report ID.
func (s *service) Submit(ctx context.Context, req Request) (string, error) {
	if s.deps.Jobs == nil {
		return "", errors.New(errors.ErrCodeFeatureDisabled, "job queue is not configured")
	}
	if err := s.validate(&req); err != nil {
		return "", err
	}

	job := Job{ID: s.newID(), SubmittedAt: s.now().UTC()}
	if s.deps.Store != nil {
		for _, group := range [][]Evidence{req.Images, req.Audio} {
			for i := range group {
				ev := &group[i]
				if len(ev.Data) == 0 {
					continue
				}
				key, err := s.deps.Store.PutEvidence(ctx, job.ID, *ev)
				if err != nil {
					return "", err
				}
				ev.ObjectKey = key
				ev.Data = nil
			}
		}
	}
	job.Request = req

	if err := s.deps.Jobs.PublishJob(ctx, job); err != nil {
		return "", err
	}
	s.logger.Info("diagnosis job submitted",
		logging.String("job_id", job.ID),
		logging.Int("images", len(req.Images)),
		logging.Int("audio", len(req.Audio)),
	)
	return job.ID, nil
}

// HandleJob runs a queued diagnosis and publishes its result. The returned
// error is non-nil only when the job should be retried.
func (s *service) HandleJob(ctx context.Context, job Job) (*JobResult, error) {
	start := s.now()
	log := s.logger.With(logging.String("job_id", job.ID), logging.Int("attempt", job.Attempt))

	result := &JobResult{JobID: job.ID}
	report, err := s.diagnose(ctx, job.ID, job.Request)
	if err != nil {
		if retryable(err) {
			s.deps.Metrics.RecordJob(prometheus.OutcomeFailure, time.Since(start))
			return nil, err
		}
		log.Warn("diagnosis job rejected", logging.Err(err))
		result.Error = err.Error()
	} else {
		status := report.Status
		result.Status = &status
		if s.deps.Store != nil {
			key, err := s.deps.Store.PutReport(ctx, report)
			if err != nil {
				s.deps.Metrics.RecordJob(prometheus.OutcomeFailure, time.Since(start))
				return nil, err
			}
			result.ReportKey = key
			if kr, ok := s.deps.Reports.(reportKeyRecorder); ok {
				if err := kr.SetReportKey(ctx, report.ID, key); err != nil {
					log.Warn("failed to record report key", logging.Err(err))
				}
			}
		}
	}
	result.Completed = s.now().UTC()

	if s.deps.Jobs != nil {
		if err := s.deps.Jobs.PublishResult(ctx, *result); err != nil {
			log.Warn("failed to publish job result", logging.Err(err))
		}
	}

	outcome := prometheus.OutcomeSuccess
	if result.Error != "" {
		outcome = prometheus.OutcomeSkipped
	}
	s.deps.Metrics.RecordJob(outcome, time.Since(start))
	log.Info("diagnosis job finished", logging.String("outcome", outcome))
	return result, nil
}

type reportKeyRecorder interface {
	SetReportKey(ctx context.Context, id, key string) error
}

// retryable reports whether a job failure is transient. Input errors are
// final; infrastructure and timeout errors are retried.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation,
		errors.ErrCodeEvidenceEmpty,
		errors.ErrCodeEvidenceTooLarge,
		errors.ErrCodeEvidenceTypeUnsupported,
		errors.ErrCodeEvidenceNotFound,
		errors.ErrCodeFeatureDisabled:
		return false
	}
	return true
}
