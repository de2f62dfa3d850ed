package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"nodedesk/pkg/connection"
	"nodedesk/pkg/persist"
	"nodedesk/pkg/settings"
)

// maxFollowUps bounds the actions hooks may dispatch after one transition.
const maxFollowUps = 8

// Persistence loads and saves the settings record.
type Persistence interface {
	Load(ctx context.Context, name string) (settings.State, bool)
	persist.Saver
}

// Options configures a Store.
type Options struct {
	// Name of the persisted record. Defaults to settings.RecordName.
	Name string
	// Defaults seed a first run and complete partial records.
	Defaults settings.State
	// AppVersion is the running client version.
	AppVersion string
	Adapter    Persistence
	// Locales accepted by ChangeLanguage. Defaults to settings.Locales.
	Locales []string
	Logger  *slog.Logger
	// KeyGen produces internal API keys. Defaults to settings.NewAPIKey.
	KeyGen func() (string, error)
}

// Store owns the live settings state. Dispatches are serialized; every
// accepted transition is queued for persistence and then offered to the
// post-transition hooks. Subscribers see the transitions in order once the
// dispatch lock is released.
type Store struct {
	name       string
	defaults   settings.State
	appVersion string
	locales    []string
	keyGen     func() (string, error)
	log        *slog.Logger
	writer     *persist.Writer

	dispatchMu sync.Mutex

	stateMu sync.RWMutex
	state   settings.State

	subMu  sync.Mutex
	subs   map[uint64]func(settings.State)
	nextID uint64

	// notifyMu guards the transitions waiting for delivery. Only one
	// goroutine delivers at a time.
	notifyMu   sync.Mutex
	notifyQ    []settings.State
	delivering bool
}

// New loads the record (or starts from the defaults), completes it and runs
// the hooks once.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Adapter == nil {
		return nil, errors.New("core: no persistence adapter")
	}
	if opts.Name == "" {
		opts.Name = settings.RecordName
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.KeyGen == nil {
		opts.KeyGen = settings.NewAPIKey
	}
	if len(opts.Locales) == 0 {
		opts.Locales = settings.Locales
	}

	s := &Store{
		name:       opts.Name,
		defaults:   opts.Defaults,
		appVersion: opts.AppVersion,
		locales:    opts.Locales,
		keyGen:     opts.KeyGen,
		log:        opts.Logger,
		subs:       make(map[uint64]func(settings.State)),
	}

	st, ok := opts.Adapter.Load(ctx, s.name)
	if ok {
		s.log.Info("Settings: loaded stored record", "name", s.name, "ui_version", st.UIVersion)
	} else {
		st = opts.Defaults
		s.log.Info("Settings: no usable record, starting from defaults", "name", s.name)
	}
	s.state = st
	s.writer = persist.NewWriter(opts.Adapter, s.name, s.log)

	s.dispatchMu.Lock()
	s.runHooks()
	s.dispatchMu.Unlock()
	s.deliver()

	return s, nil
}

// State returns a snapshot of the current settings.
func (s *Store) State() settings.State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Connection resolves the node endpoint from the current settings.
func (s *Store) Connection() connection.Config {
	return connection.Resolve(s.State())
}

// Dispatch applies a to the state and delivers the resulting transitions to
// subscribers before returning. A subscriber may dispatch; its transitions
// are delivered after it returns. While another goroutine is delivering,
// Dispatch leaves delivery to it.
func (s *Store) Dispatch(a settings.Action) settings.State {
	s.dispatchMu.Lock()
	if s.apply(a) {
		s.runHooks()
	}
	st := s.State()
	s.dispatchMu.Unlock()

	s.deliver()
	return st
}

// Subscribe registers fn for every accepted transition. The returned func
// removes it.
func (s *Store) Subscribe(fn func(settings.State)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Flush waits until every accepted transition so far is persisted.
func (s *Store) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// Close persists the latest state and stops the writer. The adapter is owned
// by the caller.
func (s *Store) Close(ctx context.Context) error {
	return s.writer.Close(ctx)
}

// SaveExternalURL stores the external node URL. An empty URL clears it.
func (s *Store) SaveExternalURL(url string) error {
	if url != "" {
		if err := connection.ValidateURL(url); err != nil {
			return err
		}
	}
	s.Dispatch(settings.SaveExternalURL(url))
	return nil
}

// SaveLogLevel stores the log level given by name, in any case.
func (s *Store) SaveLogLevel(level string) error {
	l, err := settings.ParseLogLevel(level)
	if err != nil {
		return err
	}
	s.Dispatch(settings.SaveLogLevel(l))
	return nil
}

func (s *Store) ToggleUseExternalNode(enable bool) {
	s.Dispatch(settings.ToggleUseExternalNode(enable))
}

func (s *Store) ToggleRunInternalNode(run bool) {
	s.Dispatch(settings.ToggleRunInternalNode(run))
}

// SaveExternalAPIKey stores the key sent to an external node.
func (s *Store) SaveExternalAPIKey(key string) error {
	if err := settings.ValidateAPIKey(key); err != nil {
		return err
	}
	s.Dispatch(settings.SetExternalKey(key))
	return nil
}

// ChangeLanguage switches the UI language to one of the supported locales.
func (s *Store) ChangeLanguage(lng string) error {
	if !settings.IsSupportedLocale(s.locales, lng) {
		return fmt.Errorf("%w: %q", settings.ErrUnsupportedLocale, lng)
	}
	s.Dispatch(settings.ChangeLanguage(lng))
	return nil
}

// Locales returns the languages ChangeLanguage accepts.
func (s *Store) Locales() []string {
	out := make([]string, len(s.locales))
	copy(out, s.locales)
	return out
}

// apply reduces a into the state and queues it for delivery. It reports
// false when the action left the state unchanged; nothing is persisted or
// published then.
func (s *Store) apply(a settings.Action) bool {
	prev := s.State()
	next := settings.Reduce(prev, a)
	if next == prev {
		s.log.Debug("Settings: action left state unchanged", "action", a.Type)
		return false
	}

	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	s.log.Debug("Settings: transition", "action", a.Type)
	s.writer.Submit(next)

	s.notifyMu.Lock()
	s.notifyQ = append(s.notifyQ, next)
	s.notifyMu.Unlock()
	return true
}

// deliver hands queued transitions to subscribers in order. It must be
// called without dispatchMu held.
func (s *Store) deliver() {
	s.notifyMu.Lock()
	if s.delivering {
		s.notifyMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.notifyQ) > 0 {
		batch := s.notifyQ
		s.notifyQ = nil
		s.notifyMu.Unlock()
		for _, st := range batch {
			s.publish(st)
		}
		s.notifyMu.Lock()
	}
	s.delivering = false
	s.notifyMu.Unlock()
}

func (s *Store) publish(st settings.State) {
	s.subMu.Lock()
	fns := make([]func(settings.State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// runHooks dispatches follow-up actions until the hooks are satisfied.
// Callers hold dispatchMu.
func (s *Store) runHooks() {
	for i := 0; ; i++ {
		a, ok := s.followUp(s.State())
		if !ok {
			return
		}
		if i == maxFollowUps {
			s.log.Warn("Settings: hook chain limit reached", "limit", maxFollowUps, "pending", a.Type)
			return
		}
		if !s.apply(a) {
			return
		}
	}
}
