// Package panel implements the admin state store: the single owner of all
// server-synchronized state. Every action computes its next state from one
// snapshot and commits it as one update, so no interleaved partial writes are
// possible. Success responses are the authoritative merge source; a failed
// write leaves the previously confirmed state intact.
package panel

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"yumeadmin/internal/adminapi"
	"yumeadmin/internal/logger"
	"yumeadmin/pkg/yumetypes"
)

// Sentinel errors for locally detected failures. These surface without any
// network round trip.
var (
	ErrSaveInFlight    = errors.New("a save is already in flight")
	ErrNameRequired    = errors.New("character file name is required")
	ErrNewNameRequired = errors.New("new character file name is required")
)

// DefaultLogLines is the initial line count requested for log tails.
const DefaultLogLines = 200

// State is one immutable snapshot of everything the store owns. Consumers
// receive copies and invoke actions rather than mutating directly.
type State struct {
	Config yumetypes.AdminConfig

	CharacterFile string
	Character     yumetypes.CharacterDocument

	LogFiles        []yumetypes.LogFileDescriptor
	SelectedLogFile string
	LogLines        int
	LogContent      string

	LoadingConfig     bool
	Saving            bool
	LoadingProfile    bool
	LoadingCharacter  bool
	SavingCharacter   bool
	CreatingCharacter bool
	LoadingLogs       bool

	// Status and Error are the two most recent outcome strings, one "ok" and
	// one "error", independently retained until the next action replaces them.
	Status string
	Error  string
}

// Store owns the admin panel state and mediates every read/write against the
// remote admin API.
type Store struct {
	mu          sync.Mutex
	initialized bool
	client      *adminapi.Client
	state       State

	// lastRequestedCharacter gates stale character responses: only the
	// latest requested identifier may commit its result.
	lastRequestedCharacter string
}

// New creates a store backed by the given admin API client.
func New(client *adminapi.Client) *Store {
	return &Store{client: client}
}

// Name returns the service name "panel" for registration.
func (s *Store) Name() string {
	return "panel"
}

// Initialize resets the store to its default state.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{
		Config:    yumetypes.DefaultAdminConfig(),
		Character: yumetypes.DefaultCharacterDocument(),
		LogFiles:  []yumetypes.LogFileDescriptor{},
		LogLines:  DefaultLogLines,
	}
	s.initialized = true
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneStateLocked()
}

func (s *Store) cloneStateLocked() State {
	out := s.state
	out.Config = s.state.Config.Clone()
	out.Character = s.state.Character.Clone()
	out.LogFiles = append([]yumetypes.LogFileDescriptor(nil), s.state.LogFiles...)
	return out
}

func (s *Store) guardInitialized() error {
	if !s.initialized {
		return fmt.Errorf("panel store not initialized")
	}
	return nil
}

// LoadConfig fetches the configuration record and replaces local state
// field-by-field, preserving fields the response omits. The secret key field
// is cleared after every successful load.
func (s *Store) LoadConfig(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.LoadingConfig = true
	s.state.Error = ""
	next := s.state.Config.Clone()
	s.mu.Unlock()

	err := s.client.GetConfig(ctx, &next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingConfig = false
	if err != nil {
		s.state.Error = err.Error()
		return err
	}
	next.AIKey = ""
	s.state.Config = next
	return nil
}

// SaveConfig merges the optional field overrides onto the current
// configuration, sends the write, and commits the server's response on
// success. A second save while one is outstanding fails with ErrSaveInFlight
// before any state or network effect.
func (s *Store) SaveConfig(ctx context.Context, override map[string]string) error {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state.Saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}

	next := s.state.Config.Clone()
	for key, value := range override {
		if err := applyConfigField(&next, key, value); err != nil {
			s.state.Error = err.Error()
			s.mu.Unlock()
			return err
		}
	}
	payload := buildConfigUpdate(next)
	s.state.Saving = true
	s.state.Status = ""
	s.state.Error = ""
	s.mu.Unlock()

	err := s.client.UpdateConfig(ctx, payload, &next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Saving = false
	if err != nil {
		s.state.Error = err.Error()
		return err
	}
	next.AIKey = ""
	s.state.Config = next
	s.state.Status = "Config saved and hot reloaded"
	return nil
}

// SetConfigField coerces and applies one local configuration edit. Changing
// the active character identifier triggers an automatic character load as a
// reactive side effect.
func (s *Store) SetConfigField(ctx context.Context, key, value string) error {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	previousCharacter := s.state.Config.Character
	if err := applyConfigField(&s.state.Config, key, value); err != nil {
		s.state.Error = err.Error()
		s.mu.Unlock()
		return err
	}
	characterChanged := key == "character" && s.state.Config.Character != previousCharacter
	target := s.state.Config.Character
	s.mu.Unlock()

	if characterChanged {
		return s.LoadCharacter(ctx, target)
	}
	return nil
}

// SelectAIProfile records the profile name and loads it. Blank names are a
// no-op, not an error.
func (s *Store) SelectAIProfile(ctx context.Context, name string) error {
	target := strings.TrimSpace(name)
	if target == "" {
		return nil
	}

	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.Config.AIProfile = target
	s.state.Config.AIKey = ""
	s.mu.Unlock()

	return s.LoadAIProfile(ctx, target)
}

// LoadAIProfile fetches the named profile and merges only the fields the
// response defines; everything absent keeps its previous value, so partial
// profile documents work.
func (s *Store) LoadAIProfile(ctx context.Context, name string) error {
	target := strings.TrimSpace(name)
	if target == "" {
		return nil
	}

	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.LoadingProfile = true
	s.state.Error = ""
	next := s.state.Config.Clone()
	s.mu.Unlock()

	actual, err := s.client.GetAIProfile(ctx, target, &next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingProfile = false
	if err != nil {
		s.state.Error = err.Error()
		return err
	}
	if actual == "" {
		actual = target
	}
	next.AIProfile = actual
	if !containsString(next.AIProfiles, actual) {
		next.AIProfiles = append(next.AIProfiles, actual)
	}
	next.AIKey = ""
	s.state.Config = next
	return nil
}

// RefreshCharacterOptions republishes the known-character listing into the
// configuration's options field without touching the active document.
func (s *Store) RefreshCharacterOptions(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	names, err := s.client.ListCharacters(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state.Error = err.Error()
		return err
	}
	s.state.Config.CharacterOptions = names
	return nil
}

// LoadCharacter fetches and normalizes the named document. A blank identifier
// clears local character state to defaults: that is the "no character
// selected" state, not an error. Stale responses lose to the latest requested
// identifier.
func (s *Store) LoadCharacter(ctx context.Context, name string) error {
	target := strings.TrimSpace(name)

	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	if target == "" {
		s.state.CharacterFile = ""
		s.state.Character = yumetypes.DefaultCharacterDocument()
		s.lastRequestedCharacter = ""
		s.mu.Unlock()
		return nil
	}
	s.lastRequestedCharacter = target
	s.state.LoadingCharacter = true
	s.state.Error = ""
	s.mu.Unlock()

	env, err := s.client.GetCharacter(ctx, target)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingCharacter = false
	if err != nil {
		s.state.Error = err.Error()
		return err
	}
	if s.lastRequestedCharacter != target {
		logger.Debug("stale character response dropped", "requested", target, "latest", s.lastRequestedCharacter)
		return nil
	}
	file := env.File
	if file == "" {
		file = target
	}
	s.state.CharacterFile = file
	s.state.Character = yumetypes.NormalizeCharacterDocument(env.Config)
	return nil
}

// SaveCharacter writes the document under the given identifier. An empty name
// is a local validation failure; no request is issued. Success replaces local
// document state and refreshes the identifier listing, since a save may
// change the identifier set.
func (s *Store) SaveCharacter(ctx context.Context, name string, doc *yumetypes.CharacterDocument) error {
	target := strings.TrimSpace(name)

	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	if target == "" {
		s.state.Error = ErrNameRequired.Error()
		s.mu.Unlock()
		return ErrNameRequired
	}
	if s.state.SavingCharacter {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	payload := s.state.Character.Clone()
	if doc != nil {
		payload = doc.Clone()
	}
	s.state.SavingCharacter = true
	s.state.Status = ""
	s.state.Error = ""
	s.mu.Unlock()

	env, err := s.client.UpdateCharacter(ctx, target, payload)

	s.mu.Lock()
	s.state.SavingCharacter = false
	if err != nil {
		s.state.Error = err.Error()
		s.mu.Unlock()
		return err
	}
	file := env.File
	if file == "" {
		file = target
	}
	s.state.CharacterFile = file
	s.state.Character = yumetypes.NormalizeCharacterDocument(env.Config)
	s.state.Status = "Character file saved"
	s.mu.Unlock()

	return s.RefreshCharacterOptions(ctx)
}

// CreateCharacter has the same contract as SaveCharacter against the creation
// endpoint; on success it additionally makes the new identifier the active
// character.
func (s *Store) CreateCharacter(ctx context.Context, name string, doc *yumetypes.CharacterDocument) error {
	target := strings.TrimSpace(name)

	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	if target == "" {
		s.state.Error = ErrNewNameRequired.Error()
		s.mu.Unlock()
		return ErrNewNameRequired
	}
	if s.state.CreatingCharacter {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	payload := s.state.Character.Clone()
	if doc != nil {
		payload = doc.Clone()
	}
	s.state.CreatingCharacter = true
	s.state.Status = ""
	s.state.Error = ""
	s.mu.Unlock()

	env, err := s.client.CreateCharacter(ctx, target, payload)

	s.mu.Lock()
	s.state.CreatingCharacter = false
	if err != nil {
		s.state.Error = err.Error()
		s.mu.Unlock()
		return err
	}
	created := env.File
	if created == "" {
		created = target
	}
	s.state.CharacterFile = created
	s.state.Character = yumetypes.NormalizeCharacterDocument(env.Config)
	s.state.Config.Character = created
	s.lastRequestedCharacter = created
	s.state.Status = "Character file created"
	s.mu.Unlock()

	return s.RefreshCharacterOptions(ctx)
}

// LoadLogFiles refreshes the log listing. When nothing is selected yet the
// most recent file is auto-selected and its initial content fetched; an empty
// listing clears the selection.
func (s *Store) LoadLogFiles(ctx context.Context) error {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state.LoadingLogs = true
	s.state.Error = ""
	selected := s.state.SelectedLogFile
	lines := s.state.LogLines
	s.mu.Unlock()

	files, err := s.client.ListLogFiles(ctx)

	s.mu.Lock()
	if err != nil {
		s.state.LoadingLogs = false
		s.state.Error = err.Error()
		s.mu.Unlock()
		return err
	}
	s.state.LogFiles = files
	if len(files) == 0 {
		s.state.SelectedLogFile = ""
		s.state.LogContent = ""
		s.state.LoadingLogs = false
		s.mu.Unlock()
		return nil
	}
	target := selected
	if target == "" {
		target = files[0].Name
	}
	s.state.SelectedLogFile = target
	s.mu.Unlock()

	return s.LoadLogContent(ctx, target, lines)
}

// LoadLogContent fetches a bounded slice of the given file. An empty file
// name clears the content.
func (s *Store) LoadLogContent(ctx context.Context, file string, lines int) error {
	s.mu.Lock()
	if err := s.guardInitialized(); err != nil {
		s.mu.Unlock()
		return err
	}
	if file == "" {
		s.state.LogContent = ""
		s.state.LoadingLogs = false
		s.mu.Unlock()
		return nil
	}
	s.state.LoadingLogs = true
	s.state.Error = ""
	s.mu.Unlock()

	content, err := s.client.GetLogContent(ctx, file, lines)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LoadingLogs = false
	if err != nil {
		s.state.Error = err.Error()
		return err
	}
	s.state.LogContent = content.Content
	if content.File != "" {
		s.state.SelectedLogFile = content.File
	} else {
		s.state.SelectedLogFile = file
	}
	s.state.LogLines = lines
	return nil
}

// SelectLogFile records the log file the operator wants to tail.
func (s *Store) SelectLogFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedLogFile = name
}

// SetLogLines records the requested initial line count.
func (s *Store) SetLogLines(lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lines > 0 {
		s.state.LogLines = lines
	}
}

// applyConfigField coerces one string edit onto the typed configuration
// record. Numeric fields parse strictly so malformed input surfaces before
// any network call.
func applyConfigField(cfg *yumetypes.AdminConfig, key, value string) error {
	switch key {
	case "aiBaseUrl":
		cfg.AIBaseURL = value
	case "aiModel":
		cfg.AIModel = value
	case "aiProfile":
		cfg.AIProfile = value
	case "aiPromptRaw":
		cfg.AIPromptRaw = value
	case "character":
		cfg.Character = value
	case "aiKey":
		cfg.AIKey = value
	case "aiTemperature":
		return parseFloatField(&cfg.AITemperature, key, value)
	case "aiTopP":
		return parseFloatField(&cfg.AITopP, key, value)
	case "aiMaxTokens":
		return parseIntField(&cfg.AIMaxTokens, key, value)
	case "aiTimeout":
		return parseIntField(&cfg.AITimeout, key, value)
	case "aiRetryCount":
		return parseIntField(&cfg.AIRetryCount, key, value)
	case "aiRateLimit":
		return parseIntField(&cfg.AIRateLimit, key, value)
	default:
		return fmt.Errorf("unknown config field %q", key)
	}
	return nil
}

func parseFloatField(dst *float64, key, value string) error {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	*dst = parsed
	return nil
}

func parseIntField(dst *int, key, value string) error {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	*dst = parsed
	return nil
}

// buildConfigUpdate serializes only the well-defined configuration fields,
// trimming the fields that are semantically a path, name, or URL.
func buildConfigUpdate(cfg yumetypes.AdminConfig) adminapi.ConfigUpdate {
	return adminapi.ConfigUpdate{
		AIBaseURL:     strings.TrimSpace(cfg.AIBaseURL),
		AIModel:       strings.TrimSpace(cfg.AIModel),
		AIProfile:     strings.TrimSpace(cfg.AIProfile),
		AITemperature: cfg.AITemperature,
		AIMaxTokens:   cfg.AIMaxTokens,
		AITimeout:     cfg.AITimeout,
		AIRetryCount:  cfg.AIRetryCount,
		AIRateLimit:   cfg.AIRateLimit,
		AITopP:        cfg.AITopP,
		AIPromptRaw:   cfg.AIPromptRaw,
		Character:     cfg.Character,
		AIKey:         cfg.AIKey,
	}
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
