// Package assistant exposes the public operations of the merchant assistant:
// attribute extraction, title generation and refinement, scoring,
// competitor analysis, preference extraction, strategy suggestion, complete
// solutions and session-scoped chat.
package assistant

// #region imports
import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/czhharrison/MerchantChat/internal/attributes"
	"github.com/czhharrison/MerchantChat/internal/audience"
	"github.com/czhharrison/MerchantChat/internal/collab"
	"github.com/czhharrison/MerchantChat/internal/config"
	"github.com/czhharrison/MerchantChat/internal/conversation"
	"github.com/czhharrison/MerchantChat/internal/differential"
	"github.com/czhharrison/MerchantChat/internal/generate"
	"github.com/czhharrison/MerchantChat/internal/logging"
	"github.com/czhharrison/MerchantChat/internal/marketing"
	"github.com/czhharrison/MerchantChat/internal/metrics"
	"github.com/czhharrison/MerchantChat/internal/orchestrator"
	"github.com/czhharrison/MerchantChat/internal/preference"
	"github.com/czhharrison/MerchantChat/internal/scoring"
	"github.com/czhharrison/MerchantChat/internal/tokenize"
)

// #endregion

// #region deps

// Deps wires a Service. Config and DB are required; a nil Tokenizer means a
// lexicon tokenizer over the configured vocabulary.
type Deps struct {
	Config       config.Config
	DB           *sql.DB
	Tokenizer    tokenize.Tokenizer
	Collaborator collab.Handle
	Selector     generate.Selector
	Metrics      *metrics.Metrics
	Logger       *zerolog.Logger
}

// Service is safe for concurrent use. Operations on the same session are
// serialized; different sessions never block each other.
type Service struct {
	cfg        config.Config
	extractor  *attributes.Extractor
	audiences  *audience.Resolver
	generator  *generate.Generator
	scorer     *scoring.Engine
	refiner    *orchestrator.Refiner
	analyzer   *differential.Analyzer
	prefs      *preference.Extractor
	advisor    *marketing.Advisor
	store      *conversation.Store
	metrics    *metrics.Metrics
	log        zerolog.Logger
	styleNames []string

	mu        sync.Mutex
	locks     map[string]*sessionLock
	last      map[string]Classification
	lastOrder []string
	lastCap   int
}

// sessionLock is dropped from Service.locks once no caller holds or waits
// on it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// maxTrackedSessions bounds the per-session classifications kept for
// follow-up turns; the oldest session is forgotten first.
const maxTrackedSessions = 4096

// #endregion deps

// #region constructor

// New builds the service and migrates the tables it owns.
func New(d Deps) (*Service, error) {
	if d.DB == nil {
		return nil, errors.New("assistant: database is required")
	}
	cfg := d.Config
	tok := d.Tokenizer
	if tok == nil {
		tok = tokenize.NewLexicon(cfg.Vocabulary())
	}
	log := zerolog.Nop()
	if d.Logger != nil {
		log = logging.Component(*d.Logger, "assistant")
	}

	store, err := conversation.NewStore(d.DB, cfg.Storage.RetentionTurns)
	if err != nil {
		return nil, err
	}
	memory, err := orchestrator.NewStyleMemory(d.DB)
	if err != nil {
		return nil, err
	}

	res := audience.NewResolver(cfg.Audiences)
	scorer := scoring.NewEngine(cfg.Scoring, cfg.Dictionary.Stopwords, tok, res)
	gen := generate.NewGenerator(cfg, d.Collaborator, d.Selector)
	refiner, err := orchestrator.NewRefiner(cfg, gen, scorer, orchestrator.Options{
		Memory:  memory,
		DB:      d.DB,
		Metrics: d.Metrics,
		Logger:  d.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		extractor:  attributes.NewExtractor(cfg.Dictionary, tok),
		audiences:  res,
		generator:  gen,
		scorer:     scorer,
		refiner:    refiner,
		analyzer:   differential.NewAnalyzer(scorer, tok, cfg.Dictionary.Stopwords, cfg.Refine.KeywordLimit),
		prefs:      preference.NewExtractor(cfg.Preference, cfg.StyleNames(), res.Mentions(), tok, cfg.Dictionary.Stopwords),
		advisor:    marketing.NewAdvisor(cfg.Marketing),
		store:      store,
		metrics:    d.Metrics,
		log:        log,
		styleNames: cfg.StyleNames(),
		locks:      make(map[string]*sessionLock),
		last:       make(map[string]Classification),
		lastCap:    maxTrackedSessions,
	}, nil
}

// #endregion constructor

// #region stateless-ops

// ExtractAttributes parses a free-text product description.
func (s *Service) ExtractAttributes(text string) attributes.Descriptor {
	return s.extractor.Extract(text)
}

// ResolveAudience returns the profile for tag or the generic profile.
func (s *Service) ResolveAudience(tag string) audience.Profile {
	return s.audiences.Resolve(tag)
}

// Audiences lists the known audience tags in table order.
func (s *Service) Audiences() []string {
	return s.audiences.Tags()
}

// Styles lists the known style names in table order.
func (s *Service) Styles() []string {
	return append([]string(nil), s.styleNames...)
}

// ScoreTitle scores title against keywords. A nil keyword list derives
// keywords from the title itself.
func (s *Service) ScoreTitle(title string, keywords []string, audienceTag string) scoring.Report {
	if audienceTag != "" {
		audienceTag = s.audiences.Resolve(audienceTag).Tag
	}
	rep := s.scorer.Score(title, keywords, audienceTag)
	s.metrics.RecordScore()
	return rep
}

// AnalyzeCompetitor compares a competitor title against own keywords.
func (s *Service) AnalyzeCompetitor(title string, own []string) differential.Report {
	rep := s.analyzer.Analyze(title, own)
	s.metrics.RecordAnalysis()
	return rep
}

// ExtractPreferences summarizes an arbitrary turn list.
func (s *Service) ExtractPreferences(turns []conversation.Turn) preference.Snapshot {
	return s.prefs.Extract(turns)
}

// SuggestStrategy renders marketing advice. Audience aliases are resolved to
// their canonical tag first.
func (s *Service) SuggestStrategy(category, audienceTag, budget string) string {
	if tag, ok := s.audiences.Canonical(audienceTag); ok {
		audienceTag = tag
	}
	return s.advisor.Suggest(category, audienceTag, budget)
}

// #endregion stateless-ops

// #region title-ops

// TitleInput describes one title request. SessionID is optional; when set,
// the session's preferences steer generation.
type TitleInput struct {
	Description string
	Style       string
	Audience    string
	SessionID   string
	Keywords    []string
}

// GenerateTitle produces one unscored title.
func (s *Service) GenerateTitle(ctx context.Context, in TitleInput) (generate.Candidate, error) {
	hints, err := s.hintsFor(in.SessionID)
	if err != nil {
		return generate.Candidate{}, err
	}
	desc := s.extractor.Extract(in.Description)
	prof := s.pickAudience(in.Audience, hints)
	c := s.generator.Generate(ctx, generate.Request{
		Descriptor: desc,
		Style:      s.pickStyle(in.Style, desc, prof, hints),
		Audience:   prof,
		Hints:      hints,
	})
	s.metrics.RecordGeneration(string(c.Source), c.Style, c.FallbackReason)
	return c, nil
}

// RefineTitle runs one bounded refinement.
func (s *Service) RefineTitle(ctx context.Context, in TitleInput) (orchestrator.Outcome, error) {
	hints, err := s.hintsFor(in.SessionID)
	if err != nil {
		return orchestrator.Outcome{}, err
	}
	return s.refine(ctx, in, s.extractor.Extract(in.Description), hints), nil
}

func (s *Service) refine(ctx context.Context, in TitleInput, desc attributes.Descriptor, hints *preference.Snapshot) orchestrator.Outcome {
	prof := s.pickAudience(in.Audience, hints)
	return s.refiner.Refine(ctx, orchestrator.RefineRequest{
		SessionID:  in.SessionID,
		Descriptor: desc,
		Style:      s.pickStyle(in.Style, desc, prof, hints),
		Audience:   prof,
		Hints:      hints,
		Keywords:   in.Keywords,
	})
}

// pickAudience prefers the explicit tag, then the session's top audience.
func (s *Service) pickAudience(tag string, hints *preference.Snapshot) audience.Profile {
	if strings.TrimSpace(tag) == "" && hints != nil {
		if top, ok := hints.TopAudience(); ok {
			tag = top
		}
	}
	return s.audiences.Resolve(tag)
}

// pickStyle prefers the explicit style, then the first style in trial order.
func (s *Service) pickStyle(style string, desc attributes.Descriptor, prof audience.Profile, hints *preference.Snapshot) string {
	if strings.TrimSpace(style) != "" {
		return style
	}
	if order := s.refiner.StyleOrder(desc.Category, prof.Tag, hints); len(order) > 0 {
		return order[0]
	}
	return s.cfg.DefaultStyle
}

// #endregion title-ops

// #region solve

// SolveInput describes one complete-solution request.
type SolveInput struct {
	Description     string
	Audience        string
	Budget          string
	CompetitorTitle string
	SessionID       string
}

// Solution bundles refined titles for every style, the recommended one,
// marketing advice and an optional competitor analysis.
type Solution struct {
	Descriptor  attributes.Descriptor  `json:"descriptor"`
	Audience    string                 `json:"audience"`
	Budget      string                 `json:"budget"`
	Keywords    []string               `json:"keywords"`
	Candidates  []orchestrator.Outcome `json:"candidates"`
	Recommended orchestrator.Outcome   `json:"recommended"`
	Strategy    string                 `json:"strategy"`
	Competitor  *differential.Report   `json:"competitor,omitempty"`
}

// Solve refines a title in every style, in trial order, and recommends the
// highest score. Ties go to the earlier style.
func (s *Service) Solve(ctx context.Context, in SolveInput) (Solution, error) {
	hints, err := s.hintsFor(in.SessionID)
	if err != nil {
		return Solution{}, err
	}
	sol, err := s.solveFor(ctx, in.SessionID, s.extractor.Extract(in.Description), in.Audience, in.Budget, hints)
	if err != nil {
		return Solution{}, err
	}
	if strings.TrimSpace(in.CompetitorTitle) != "" {
		rep := s.AnalyzeCompetitor(in.CompetitorTitle, sol.Keywords)
		sol.Competitor = &rep
	}

	s.log.Info().
		Str("session", in.SessionID).
		Str("category", sol.Descriptor.Category).
		Str("audience", sol.Audience).
		Str("style", sol.Recommended.Candidate.Style).
		Float64("score", sol.Recommended.Report.Score).
		Msg("solution ready")
	return sol, nil
}

// #endregion solve

// #region sessions

// NewSession starts an empty conversation.
func (s *Service) NewSession() (string, error) {
	return s.store.NewSession()
}

// AddTurn appends a turn to a session.
func (s *Service) AddTurn(sessionID string, role conversation.Role, text string) (conversation.Turn, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.store.Append(sessionID, role, text)
}

// History returns up to n of the session's latest turns, oldest first.
func (s *Service) History(sessionID string, n int) ([]conversation.Turn, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.store.Recent(sessionID, n)
}

// SessionPreferences recomputes the session's preference snapshot.
func (s *Service) SessionPreferences(sessionID string) (preference.Snapshot, error) {
	unlock := s.lock(sessionID)
	defer unlock()
	return s.snapshot(sessionID)
}

// Sessions lists stored sessions, newest first.
func (s *Service) Sessions() ([]conversation.Session, error) {
	return s.store.Sessions()
}

func (s *Service) snapshot(sessionID string) (preference.Snapshot, error) {
	turns, err := s.store.Recent(sessionID, s.prefs.Window())
	if err != nil {
		return preference.Snapshot{}, err
	}
	return s.prefs.Extract(turns), nil
}

// hintsFor returns nil for an empty session ID.
func (s *Service) hintsFor(sessionID string) (*preference.Snapshot, error) {
	if sessionID == "" {
		return nil, nil
	}
	snap, err := s.SessionPreferences(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	return &snap, nil
}

func (s *Service) lock(sessionID string) func() {
	s.mu.Lock()
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		s.locks[sessionID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sessionID)
		}
		s.mu.Unlock()
	}
}

func (s *Service) previous(sessionID string) (Classification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls, ok := s.last[sessionID]
	return cls, ok
}

func (s *Service) remember(sessionID string, cls Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.last[sessionID]; !ok {
		s.lastOrder = append(s.lastOrder, sessionID)
		for len(s.lastOrder) > s.lastCap {
			delete(s.last, s.lastOrder[0])
			s.lastOrder = s.lastOrder[1:]
		}
	}
	s.last[sessionID] = cls
}

// #endregion sessions
