// Package session implements the operator workflow around a stored A/B test:
// per-session settings, building a collection arm by arm and analysing it.
package session

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/moguls753/abtest/internal/experiment"
	"github.com/moguls753/abtest/internal/statistics"
	"github.com/moguls753/abtest/internal/store"
)

var (
	// ErrNoActiveTest is returned by test operations when the session has no test
	ErrNoActiveTest = errors.New("no active test")
	// ErrInvalidSetting is returned for an unknown setting key or a rejected value
	ErrInvalidSetting = errors.New("invalid setting")
)

// Setting keys accepted by UpdateSetting
const (
	KeyLanguage = "language"
	KeyAlpha    = "alpha"
	KeyEpsilon  = "epsilon"
)

var sessionNamespace = uuid.MustParse("6f1d3c1e-5a0b-4f43-9b8e-2d7c0a4e9b11")

// DefaultID returns a stable session id for the current OS user
func DefaultID() string {
	name := "abtest"
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return uuid.NewSHA1(sessionNamespace, []byte(name)).String()
}

// Service runs session operations against a store
type Service struct {
	store    store.Store
	defaults store.Settings
	base     statistics.Analysis
	logger   *zap.Logger
	validate *validator.Validate
}

// New creates a service. defaults seed new sessions; base supplies the delta and
// prior of every analysis while alpha and epsilon come from the session.
func New(st store.Store, defaults store.Settings, base statistics.Analysis, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    st,
		defaults: defaults,
		base:     base,
		logger:   logger.With(zap.String("component", "session")),
		validate: validator.New(),
	}
}

// load returns the stored session, or a fresh one with default settings
func (s *Service) load(ctx context.Context, id string) (*store.Session, error) {
	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return &store.Session{ID: id, Settings: s.defaults}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

// Settings returns the session's settings
func (s *Service) Settings(ctx context.Context, id string) (store.Settings, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return store.Settings{}, err
	}
	return sess.Settings, nil
}

// UpdateSetting changes one setting and persists the session
func (s *Service) UpdateSetting(ctx context.Context, id, key, value string) (store.Settings, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return store.Settings{}, err
	}

	updated := sess.Settings
	value = strings.TrimSpace(value)
	switch strings.ToLower(key) {
	case KeyLanguage:
		updated.Language = strings.ToLower(value)
	case KeyAlpha, KeyEpsilon:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return store.Settings{}, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidSetting, key, value)
		}
		if strings.ToLower(key) == KeyAlpha {
			updated.Alpha = f
		} else {
			updated.Epsilon = f
		}
	default:
		return store.Settings{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, key)
	}

	if err := s.validate.Struct(updated); err != nil {
		return store.Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalidSetting, key, err)
	}

	sess.Settings = updated
	if err := s.store.PutSession(ctx, sess); err != nil {
		return store.Settings{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("setting updated",
		zap.String("session", id),
		zap.String("key", key),
		zap.String("value", value))
	return updated, nil
}

// NewTest starts an empty test for the session and returns its id. A test
// already in progress is discarded.
func (s *Service) NewTest(ctx context.Context, id string) (string, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if sess.TestID != "" {
		s.logger.Warn("discarding test in progress",
			zap.String("session", id),
			zap.String("test", sess.TestID))
		if err := s.store.DeleteTest(ctx, sess.TestID); err != nil {
			return "", fmt.Errorf("delete previous test: %w", err)
		}
	}

	testID := ulid.Make().String()
	empty, err := experiment.NewCollection(s.logger)
	if err != nil {
		return "", err
	}
	if err := s.save(ctx, testID, empty); err != nil {
		return "", err
	}

	sess.TestID = testID
	if err := s.store.PutSession(ctx, sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("test started", zap.String("session", id), zap.String("test", testID))
	return testID, nil
}

// active loads the session's test collection
func (s *Service) active(ctx context.Context, id string) (*store.Session, *experiment.Collection, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if sess.TestID == "" {
		return nil, nil, ErrNoActiveTest
	}

	payload, err := s.store.LoadTest(ctx, sess.TestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: test %s is gone", ErrNoActiveTest, sess.TestID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load test %s: %w", sess.TestID, err)
	}

	c, err := experiment.NewCollection(s.logger)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Deserialize(payload); err != nil {
		return nil, nil, fmt.Errorf("decode test %s: %w", sess.TestID, err)
	}
	return sess, c, nil
}

func (s *Service) save(ctx context.Context, testID string, c *experiment.Collection) error {
	payload, err := c.Serialize()
	if err != nil {
		return fmt.Errorf("encode test %s: %w", testID, err)
	}
	if err := s.store.SaveTest(ctx, testID, payload); err != nil {
		return fmt.Errorf("save test %s: %w", testID, err)
	}
	return nil
}

// AddControl parses "<total> <success>" and sets it as the control
func (s *Service) AddControl(ctx context.Context, id, raw string) error {
	v, err := experiment.ParseCounts(raw)
	if err != nil {
		return err
	}
	sess, c, err := s.active(ctx, id)
	if err != nil {
		return err
	}
	if err := c.AddControl(v); err != nil {
		return err
	}
	return s.save(ctx, sess.TestID, c)
}

// AddTreatment parses "<total> <success>", appends it and returns its number
func (s *Service) AddTreatment(ctx context.Context, id, raw string) (int, error) {
	v, err := experiment.ParseCounts(raw)
	if err != nil {
		return 0, err
	}
	sess, c, err := s.active(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := c.AddTreatments(v); err != nil {
		return 0, err
	}
	if err := s.save(ctx, sess.TestID, c); err != nil {
		return 0, err
	}
	return c.Len(), nil
}

// DeleteControl removes the control of the active test
func (s *Service) DeleteControl(ctx context.Context, id string) error {
	sess, c, err := s.active(ctx, id)
	if err != nil {
		return err
	}
	c.DeleteControl()
	return s.save(ctx, sess.TestID, c)
}

// DeleteTreatment removes treatment n (1-based) of the active test
func (s *Service) DeleteTreatment(ctx context.Context, id string, n int) error {
	sess, c, err := s.active(ctx, id)
	if err != nil {
		return err
	}
	c.DeleteTreatment(n)
	return s.save(ctx, sess.TestID, c)
}

// Collection returns the collection of the active test
func (s *Service) Collection(ctx context.Context, id string) (*experiment.Collection, error) {
	_, c, err := s.active(ctx, id)
	return c, err
}

// Describe summarises the active test. The summary is nil for an empty test.
func (s *Service) Describe(ctx context.Context, id string) (*experiment.Summary, error) {
	_, c, err := s.active(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Describe(), nil
}

// Analysis returns the thresholds used for the session
func (s *Service) Analysis(ctx context.Context, id string) (statistics.Analysis, error) {
	settings, err := s.Settings(ctx, id)
	if err != nil {
		return statistics.Analysis{}, err
	}
	a := s.base
	a.Alpha = settings.Alpha
	a.Epsilon = settings.Epsilon
	return a, nil
}

// Analyze compares every treatment of the active test against its control
func (s *Service) Analyze(ctx context.Context, id string) ([]statistics.Comparison, error) {
	_, c, err := s.active(ctx, id)
	if err != nil {
		return nil, err
	}
	a, err := s.Analysis(ctx, id)
	if err != nil {
		return nil, err
	}
	return statistics.CompareCollection(c, a)
}

// CancelTest discards the active test
func (s *Service) CancelTest(ctx context.Context, id string) error {
	sess, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if sess.TestID == "" {
		return ErrNoActiveTest
	}

	if err := s.store.DeleteTest(ctx, sess.TestID); err != nil {
		return fmt.Errorf("delete test %s: %w", sess.TestID, err)
	}
	s.logger.Info("test cancelled", zap.String("session", id), zap.String("test", sess.TestID))

	sess.TestID = ""
	if err := s.store.PutSession(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
