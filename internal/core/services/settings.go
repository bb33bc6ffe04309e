package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragchat/internal/core/domain"
	"github.com/custodia-labs/ragchat/internal/core/ports/driven"
	"github.com/custodia-labs/ragchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedTimeout   = "embedding.timeout"
	keyEmbedRateLimit = "embedding.rate_limit"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTimeout     = "llm.timeout"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"

	keyRetrievalK      = "retrieval.k"
	keyRetrievalFetchK = "retrieval.fetch_k"
	keyRetrievalType   = "retrieval.type"
	keyRetrievalLambda = "retrieval.lambda"

	keyChunkSize    = "chunking.size"
	keyChunkOverlap = "chunking.overlap"

	keyIndexPath = "index.path"

	keyHistoryBackend = "history.backend"
	keyPersistPartial = "history.persist_partial"
)

// Environment variables consulted when the config file leaves a value empty.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvOllamaHost   = "OLLAMA_HOST"
)

// IndexDirName is the default vector index directory under the data dir.
const IndexDirName = "vector_db"

// valueParser validates a raw setting and converts it to the stored type.
type valueParser func(raw string) (any, error)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	dataDir     string
	parsers     map[string]valueParser
}

// NewSettingsService creates a new settings service.
// dataDir anchors the default index path. The aiValidator parameter is
// optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		dataDir:     dataDir,
		parsers: map[string]valueParser{
			keyEmbedProvider:   parseEmbeddingProvider,
			keyEmbedModel:      parseNonEmpty,
			keyEmbedBaseURL:    parseString,
			keyEmbedAPIKey:     parseString,
			keyEmbedTimeout:    parseTimeout,
			keyEmbedRateLimit:  parseFloatRange(0, 1000),
			keyLLMProvider:     parseLLMProvider,
			keyLLMModel:        parseNonEmpty,
			keyLLMBaseURL:      parseString,
			keyLLMAPIKey:       parseString,
			keyLLMTimeout:      parseTimeout,
			keyLLMTemperature:  parseFloatRange(0, 2),
			keyLLMMaxTokens:    parseIntMin(0),
			keyRetrievalK:      parseIntMin(1),
			keyRetrievalFetchK: parseIntMin(1),
			keyRetrievalType:   parseSearchType,
			keyRetrievalLambda: parseLambda,
			keyChunkSize:       parseIntMin(1),
			keyChunkOverlap:    parseIntMin(0),
			keyIndexPath:       parseNonEmpty,
			keyHistoryBackend:  parseHistoryBackend,
			keyPersistPartial:  parseBool,
		},
	}
}

// Get retrieves current application settings.
// Values missing from the config file come from the environment, then
// from the defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedProvider := s.getProvider(keyEmbedProvider, defaults.Embedding.Provider)
	if !embedProvider.SupportsEmbeddings() {
		embedProvider = defaults.Embedding.Provider
	}
	llmProvider := s.getProvider(keyLLMProvider, defaults.LLM.Provider)

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:  embedProvider,
			Model:     s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[embedProvider]),
			BaseURL:   s.getString(keyEmbedBaseURL, defaultBaseURL(embedProvider)),
			APIKey:    s.getString(keyEmbedAPIKey, apiKeyFromEnv(embedProvider)),
			Timeout:   s.getDuration(keyEmbedTimeout, defaults.Embedding.Timeout),
			RateLimit: s.getFloat(keyEmbedRateLimit, defaults.Embedding.RateLimit),
		},
		LLM: domain.LLMSettings{
			Provider:    llmProvider,
			Model:       s.getString(keyLLMModel, domain.DefaultLLMModels()[llmProvider]),
			BaseURL:     s.getString(keyLLMBaseURL, defaultBaseURL(llmProvider)),
			APIKey:      s.getString(keyLLMAPIKey, apiKeyFromEnv(llmProvider)),
			Timeout:     s.getDuration(keyLLMTimeout, defaults.LLM.Timeout),
			Temperature: s.getFloat(keyLLMTemperature, defaults.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		Retrieval: domain.RetrievalSettings{
			K:      s.getInt(keyRetrievalK, defaults.Retrieval.K),
			FetchK: s.getInt(keyRetrievalFetchK, defaults.Retrieval.FetchK),
			Type:   s.getSearchType(defaults.Retrieval.Type),
			Lambda: s.getFloat(keyRetrievalLambda, defaults.Retrieval.Lambda),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, defaults.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, defaults.Chunking.Overlap),
		},
		Index: domain.IndexSettings{
			Path: expandHome(s.getString(keyIndexPath, filepath.Join(s.dataDir, IndexDirName))),
		},
		History: domain.HistorySettings{
			Backend:        s.getHistoryBackend(defaults.History.Backend),
			PersistPartial: s.getBool(keyPersistPartial, defaults.History.PersistPartial),
		},
	}

	return settings, nil
}

// Set validates and stores a single setting. Changing a provider resets
// its model and base URL so the new provider's defaults apply.
func (s *SettingsService) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	parse, ok := s.parsers[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}

	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	switch key {
	case keyEmbedProvider:
		return s.reset(keyEmbedModel, keyEmbedBaseURL)
	case keyLLMProvider:
		return s.reset(keyLLMModel, keyLLMBaseURL)
	}
	return nil
}

func (s *SettingsService) reset(keys ...string) error {
	for _, k := range keys {
		if _, exists := s.configStore.Get(k); !exists {
			continue
		}
		if err := s.configStore.Set(k, ""); err != nil {
			return fmt.Errorf("reset %s: %w", k, err)
		}
	}
	return nil
}

// Values returns every effective setting as dotted key and display value.
func (s *SettingsService) Values() (map[string]string, error) {
	st, err := s.Get()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		keyEmbedProvider:   st.Embedding.Provider.String(),
		keyEmbedModel:      st.Embedding.Model,
		keyEmbedBaseURL:    st.Embedding.BaseURL,
		keyEmbedAPIKey:     MaskAPIKey(st.Embedding.APIKey),
		keyEmbedTimeout:    st.Embedding.Timeout.String(),
		keyEmbedRateLimit:  formatFloat(st.Embedding.RateLimit),
		keyLLMProvider:     st.LLM.Provider.String(),
		keyLLMModel:        st.LLM.Model,
		keyLLMBaseURL:      st.LLM.BaseURL,
		keyLLMAPIKey:       MaskAPIKey(st.LLM.APIKey),
		keyLLMTimeout:      st.LLM.Timeout.String(),
		keyLLMTemperature:  formatFloat(st.LLM.Temperature),
		keyLLMMaxTokens:    strconv.Itoa(st.LLM.MaxTokens),
		keyRetrievalK:      strconv.Itoa(st.Retrieval.K),
		keyRetrievalFetchK: strconv.Itoa(st.Retrieval.FetchK),
		keyRetrievalType:   st.Retrieval.Type.String(),
		keyRetrievalLambda: formatFloat(st.Retrieval.Lambda),
		keyChunkSize:       strconv.Itoa(st.Chunking.Size),
		keyChunkOverlap:    strconv.Itoa(st.Chunking.Overlap),
		keyIndexPath:       st.Index.Path,
		keyHistoryBackend:  string(st.History.Backend),
		keyPersistPartial:  strconv.FormatBool(st.History.PersistPartial),
	}, nil
}

// Keys returns the recognised setting keys in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(s.parsers))
	for k := range s.parsers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// MaskAPIKey hides all but the edges of an API key.
func MaskAPIKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getSearchType(defaultVal domain.SearchType) domain.SearchType {
	t := domain.SearchType(s.configStore.GetString(keyRetrievalType))
	if !t.IsValid() {
		return defaultVal
	}
	return t
}

func (s *SettingsService) getHistoryBackend(defaultVal domain.HistoryBackend) domain.HistoryBackend {
	b := domain.HistoryBackend(s.configStore.GetString(keyHistoryBackend))
	if !b.IsValid() {
		return defaultVal
	}
	return b
}

func defaultBaseURL(p domain.AIProvider) string {
	if p != domain.AIProviderOllama {
		return ""
	}
	if host := os.Getenv(EnvOllamaHost); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		return host
	}
	return domain.DefaultOllamaURL
}

func apiKeyFromEnv(p domain.AIProvider) string {
	switch p {
	case domain.AIProviderOpenAI:
		return os.Getenv(EnvOpenAIKey)
	case domain.AIProviderAnthropic:
		return os.Getenv(EnvAnthropicKey)
	default:
		return ""
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Value parsers.

func parseString(raw string) (any, error) {
	return raw, nil
}

func parseNonEmpty(raw string) (any, error) {
	if raw == "" {
		return nil, errors.New("value must not be empty")
	}
	return raw, nil
}

func parseBool(raw string) (any, error) {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("expected true or false, got %q", raw)
	}
	return b, nil
}

func parseTimeout(raw string) (any, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("expected a duration such as 30s or 2m, got %q", raw)
	}
	if d <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	return d.String(), nil
}

func parseIntMin(minVal int) valueParser {
	return func(raw string) (any, error) {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected an integer, got %q", raw)
		}
		if n < minVal {
			return nil, fmt.Errorf("must be at least %d", minVal)
		}
		return n, nil
	}
}

func parseFloatRange(lo, hi float64) valueParser {
	return func(raw string) (any, error) {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %q", raw)
		}
		if f < lo || f > hi {
			return nil, fmt.Errorf("must be between %s and %s", formatFloat(lo), formatFloat(hi))
		}
		return f, nil
	}
}

func parseLambda(raw string) (any, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("expected a number, got %q", raw)
	}
	if f <= 0 || f > 1 {
		return nil, errors.New("must be greater than 0 and at most 1")
	}
	return f, nil
}

func parseEmbeddingProvider(raw string) (any, error) {
	p := domain.AIProvider(strings.ToLower(raw))
	if !p.IsValid() {
		return nil, fmt.Errorf("unknown provider %q", raw)
	}
	if !p.SupportsEmbeddings() {
		return nil, fmt.Errorf("provider %s does not support embeddings", p)
	}
	return p.String(), nil
}

func parseLLMProvider(raw string) (any, error) {
	p := domain.AIProvider(strings.ToLower(raw))
	if !p.IsValid() {
		return nil, fmt.Errorf("unknown provider %q", raw)
	}
	return p.String(), nil
}

func parseSearchType(raw string) (any, error) {
	t := domain.SearchType(strings.ToLower(raw))
	if !t.IsValid() {
		return nil, fmt.Errorf("expected %s or %s, got %q", domain.SearchSimilarity, domain.SearchMMR, raw)
	}
	return t.String(), nil
}

func parseHistoryBackend(raw string) (any, error) {
	b := domain.HistoryBackend(strings.ToLower(raw))
	if !b.IsValid() {
		return nil, fmt.Errorf("expected %s or %s, got %q", domain.HistoryBackendSQLite, domain.HistoryBackendMemory, raw)
	}
	return string(b), nil
}
