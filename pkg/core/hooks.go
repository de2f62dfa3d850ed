package core

import (
	"nodedesk/pkg/settings"
)

// hook inspects a state after a transition and may request one follow-up
// action.
type hook func(st settings.State) (settings.Action, bool)

// followUp returns the first action any hook asks for.
func (s *Store) followUp(st settings.State) (settings.Action, bool) {
	for _, h := range []hook{s.initializeHook, s.keyHook, s.versionHook} {
		if a, ok := h(st); ok {
			return a, true
		}
	}
	return settings.Action{}, false
}

// initializeHook completes a record that was never initialized.
func (s *Store) initializeHook(st settings.State) (settings.Action, bool) {
	if st.Initialized {
		return settings.Action{}, false
	}
	return settings.Initialize(s.defaults), true
}

// keyHook replaces an empty internal API key with a fresh one.
func (s *Store) keyHook(st settings.State) (settings.Action, bool) {
	if st.InternalAPIKey != "" {
		return settings.Action{}, false
	}
	key, err := s.keyGen()
	if err != nil {
		s.log.Error("Settings: failed to generate internal api key", "error", err)
		return settings.Action{}, false
	}
	s.log.Info("Settings: generated internal api key")
	return settings.SetInternalKey(key), true
}

// versionHook moves the recorded UI version up to the running version.
func (s *Store) versionHook(st settings.State) (settings.Action, bool) {
	if !settings.ValidVersion(st.UIVersion) || !settings.ValidVersion(s.appVersion) {
		s.log.Debug("Settings: skipping version reconcile", "recorded", st.UIVersion, "running", s.appVersion)
		return settings.Action{}, false
	}
	if !settings.VersionStale(st.UIVersion, s.appVersion) {
		return settings.Action{}, false
	}
	s.log.Info("Settings: client upgraded", "from", st.UIVersion, "to", s.appVersion)
	return settings.UpdateUIVersion(s.appVersion), true
}
