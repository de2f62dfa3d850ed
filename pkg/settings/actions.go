package settings

// ActionType names a settings transition.
type ActionType string

const (
	ActionInitialize            ActionType = "SETTINGS_INITIALIZE"
	ActionToggleUseExternalNode ActionType = "TOGGLE_USE_EXTERNAL_NODE"
	ActionToggleRunInternalNode ActionType = "TOGGLE_RUN_INTERNAL_NODE"
	ActionSaveExternalURL       ActionType = "SAVE_EXTERNAL_URL"
	ActionSaveLogLevel          ActionType = "SAVE_LOG_LEVEL"
	ActionUpdateUIVersion       ActionType = "UPDATE_UI_VERSION"
	ActionSetInternalKey        ActionType = "SET_INTERNAL_KEY"
	ActionSetExternalKey        ActionType = "SET_EXTERNAL_KEY"
	ActionChangeLanguage        ActionType = "CHANGE_LANGUAGE"
)

// Action is a request to transition the settings record. Data carries the
// payload; its expected Go type depends on Type (see the constructors below).
type Action struct {
	Type ActionType `json:"type"`
	Data any        `json:"data,omitempty"`
}

// Initialize completes a partially hydrated record from defaults.
func Initialize(defaults State) Action {
	return Action{Type: ActionInitialize, Data: defaults}
}

func ToggleUseExternalNode(enable bool) Action {
	return Action{Type: ActionToggleUseExternalNode, Data: enable}
}

func ToggleRunInternalNode(run bool) Action {
	return Action{Type: ActionToggleRunInternalNode, Data: run}
}

func SaveExternalURL(url string) Action {
	return Action{Type: ActionSaveExternalURL, Data: url}
}

func SaveLogLevel(level LogLevel) Action {
	return Action{Type: ActionSaveLogLevel, Data: level}
}

func UpdateUIVersion(version string) Action {
	return Action{Type: ActionUpdateUIVersion, Data: version}
}

func SetInternalKey(key string) Action {
	return Action{Type: ActionSetInternalKey, Data: key}
}

func SetExternalKey(key string) Action {
	return Action{Type: ActionSetExternalKey, Data: key}
}

func ChangeLanguage(lng string) Action {
	return Action{Type: ActionChangeLanguage, Data: lng}
}
