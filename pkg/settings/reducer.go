package settings

// Reduce returns the state that results from applying action to state. It
// never panics: unknown action types and payloads of the wrong type return
// state unchanged.
func Reduce(state State, action Action) State {
	switch action.Type {
	case ActionInitialize:
		defaults, ok := action.Data.(State)
		if !ok {
			return state
		}
		return initialize(state, defaults)

	case ActionToggleUseExternalNode:
		enable, ok := action.Data.(bool)
		if !ok {
			return state
		}
		state.UseExternalNode = enable
		if enable {
			state.RunInternalNode = false
		}
		return state

	case ActionToggleRunInternalNode:
		run, ok := action.Data.(bool)
		if !ok {
			return state
		}
		state.RunInternalNode = run
		if run {
			state.UseExternalNode = false
		}
		return state

	case ActionSaveExternalURL:
		if url, ok := action.Data.(string); ok {
			state.URL = url
		}
		return state

	case ActionSaveLogLevel:
		switch level := action.Data.(type) {
		case LogLevel:
			state.LogLevel = level
		case string:
			state.LogLevel = LogLevel(level)
		}
		return state

	case ActionUpdateUIVersion:
		if v, ok := action.Data.(string); ok {
			state.UIVersion = v
		}
		return state

	case ActionSetInternalKey:
		if key, ok := action.Data.(string); ok {
			state.InternalAPIKey = key
		}
		return state

	case ActionSetExternalKey:
		if key, ok := action.Data.(string); ok {
			state.ExternalAPIKey = key
		}
		return state

	case ActionChangeLanguage:
		if lng, ok := action.Data.(string); ok {
			state.Lng = lng
		}
		return state

	default:
		return state
	}
}

// initialize completes a loaded record from defaults. Fields missing on disk
// were already filled when the record was decoded, so only fields whose zero
// value is unusable are filled here. An explicitly empty url or external key
// is a real value and survives.
func initialize(state, defaults State) State {
	if state.InternalPort == 0 {
		state.InternalPort = defaults.InternalPort
	}
	if state.UIVersion == "" {
		state.UIVersion = defaults.UIVersion
	}
	if state.Lng == "" {
		state.Lng = defaults.Lng
	}
	if state.LogLevel == "" {
		state.LogLevel = defaults.LogLevel
	}
	state.Initialized = true
	return state
}
