package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
)

// Loader reads the daemon configuration file, expands environment
// references, and normalizes it into a domain.ServerConfig.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newServerViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setServerDefaults(v)
	return v
}

func setServerDefaults(v *viper.Viper) {
	v.SetDefault("http.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("http.shutdownGraceSeconds", domain.DefaultShutdownGraceSeconds)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.enableMetrics", true)
	v.SetDefault("observability.enableHealthz", true)
	v.SetDefault("grpc.listenAddress", domain.DefaultGRPCListenAddress)
	v.SetDefault("cache.backend", domain.DefaultCacheBackend)
	v.SetDefault("cache.maxEntries", domain.DefaultCacheMaxEntries)
	v.SetDefault("cache.sweepSeconds", domain.DefaultCacheSweepSeconds)
	v.SetDefault("breaker.failureThreshold", domain.DefaultBreakerFailureThreshold)
	v.SetDefault("breaker.recoverySeconds", domain.DefaultBreakerRecoverySeconds)
	v.SetDefault("store.path", domain.DefaultStorePath)
	v.SetDefault("vectorStore.baseURL", domain.DefaultVectorStoreBaseURL)
	v.SetDefault("vectorStore.timeoutSeconds", domain.DefaultVectorStoreTimeoutSeconds)
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.windowSeconds", domain.DefaultRateLimitWindowSeconds)
	v.SetDefault("rateLimit.maxRequests", domain.DefaultRateLimitMaxRequests)
}

type rawConfig struct {
	HTTP          rawHTTPConfig          `mapstructure:"http"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	GRPC          rawGRPCConfig          `mapstructure:"grpc"`
	Cache         rawCacheConfig         `mapstructure:"cache"`
	Breaker       rawBreakerConfig       `mapstructure:"breaker"`
	Dispatch      rawDispatchConfig      `mapstructure:"dispatch"`
	Store         rawStoreConfig         `mapstructure:"store"`
	VectorStore   rawVectorStoreConfig   `mapstructure:"vectorStore"`
	RateLimit     rawRateLimitConfig     `mapstructure:"rateLimit"`
	Filters       rawFilterConfig        `mapstructure:"filters"`
}

type rawHTTPConfig struct {
	ListenAddress        string `mapstructure:"listenAddress"`
	ShutdownGraceSeconds int    `mapstructure:"shutdownGraceSeconds"`
	AuthToken            string `mapstructure:"authToken"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	EnableMetrics bool   `mapstructure:"enableMetrics"`
	EnableHealthz bool   `mapstructure:"enableHealthz"`
}

type rawGRPCConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listenAddress"`
}

type rawCacheConfig struct {
	Backend      string `mapstructure:"backend"`
	MaxEntries   int    `mapstructure:"maxEntries"`
	BoltPath     string `mapstructure:"boltPath"`
	SweepSeconds int    `mapstructure:"sweepSeconds"`
}

type rawBreakerConfig struct {
	FailureThreshold int `mapstructure:"failureThreshold"`
	RecoverySeconds  int `mapstructure:"recoverySeconds"`
}

type rawDispatchConfig struct {
	Coalesce bool `mapstructure:"coalesce"`
}

type rawStoreConfig struct {
	Path string `mapstructure:"path"`
}

type rawVectorStoreConfig struct {
	BaseURL        string `mapstructure:"baseURL"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

type rawRateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	WindowSeconds int  `mapstructure:"windowSeconds"`
	MaxRequests   int  `mapstructure:"maxRequests"`
}

type rawFilterConfig struct {
	Clients  map[string]rawClientPolicy  `mapstructure:"clients"`
	Projects map[string]rawProjectPolicy `mapstructure:"projects"`
}

type rawClientPolicy struct {
	EnabledGroups    []string `mapstructure:"enabledGroups"`
	DisabledPatterns []string `mapstructure:"disabledPatterns"`
	MaxTools         int      `mapstructure:"maxTools"`
}

type rawProjectPolicy struct {
	EnabledGroups    []string `mapstructure:"enabledGroups"`
	DisabledPatterns []string `mapstructure:"disabledPatterns"`
}

// Load reads and validates the config file at path. Validation problems
// are collected and joined so one pass reports everything wrong.
func (l *Loader) Load(ctx context.Context, path string) (domain.ServerConfig, error) {
	if path == "" {
		return domain.ServerConfig{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ServerConfig{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandEnv(data)
	if err != nil {
		return domain.ServerConfig{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config",
			zap.String("path", path), zap.Strings("missing", missing))
	}

	v := newServerViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.ServerConfig{}, fmt.Errorf("parse config: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.ServerConfig{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.ServerConfig{}, err
	}

	cfg, errs := normalizeConfig(raw)
	if len(errs) > 0 {
		return domain.ServerConfig{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalizeConfig(raw rawConfig) (domain.ServerConfig, []string) {
	var errs []string

	httpCfg, moreErrs := normalizeHTTPConfig(raw.HTTP)
	errs = append(errs, moreErrs...)

	obsCfg, moreErrs := normalizeObservabilityConfig(raw.Observability)
	errs = append(errs, moreErrs...)

	grpcCfg, moreErrs := normalizeGRPCConfig(raw.GRPC)
	errs = append(errs, moreErrs...)

	cacheCfg, moreErrs := normalizeCacheConfig(raw.Cache)
	errs = append(errs, moreErrs...)

	breakerCfg, moreErrs := normalizeBreakerConfig(raw.Breaker)
	errs = append(errs, moreErrs...)

	storeCfg, moreErrs := normalizeStoreConfig(raw.Store)
	errs = append(errs, moreErrs...)

	vectorCfg, moreErrs := normalizeVectorStoreConfig(raw.VectorStore)
	errs = append(errs, moreErrs...)

	rateCfg, moreErrs := normalizeRateLimitConfig(raw.RateLimit)
	errs = append(errs, moreErrs...)

	filterCfg, moreErrs := normalizeFilterOverrides(raw.Filters)
	errs = append(errs, moreErrs...)

	return domain.ServerConfig{
		HTTP:          httpCfg,
		Observability: obsCfg,
		GRPC:          grpcCfg,
		Cache:         cacheCfg,
		Breaker:       breakerCfg,
		Dispatch:      domain.DispatchConfig{Coalesce: raw.Dispatch.Coalesce},
		Store:         storeCfg,
		VectorStore:   vectorCfg,
		RateLimit:     rateCfg,
		Filters:       filterCfg,
	}, errs
}

func normalizeHTTPConfig(raw rawHTTPConfig) (domain.HTTPConfig, []string) {
	var errs []string

	addr := strings.TrimSpace(raw.ListenAddress)
	if addr == "" {
		errs = append(errs, "http.listenAddress is required")
	}
	if raw.ShutdownGraceSeconds < 0 {
		errs = append(errs, "http.shutdownGraceSeconds must be >= 0")
	}

	return domain.HTTPConfig{
		ListenAddress:        addr,
		ShutdownGraceSeconds: raw.ShutdownGraceSeconds,
		AuthToken:            strings.TrimSpace(raw.AuthToken),
	}, errs
}

func normalizeObservabilityConfig(raw rawObservabilityConfig) (domain.ObservabilityConfig, []string) {
	addr := strings.TrimSpace(raw.ListenAddress)
	if addr == "" {
		addr = domain.DefaultObservabilityListenAddress
	}
	return domain.ObservabilityConfig{
		ListenAddress: addr,
		EnableMetrics: raw.EnableMetrics,
		EnableHealthz: raw.EnableHealthz,
	}, nil
}

func normalizeGRPCConfig(raw rawGRPCConfig) (domain.GRPCConfig, []string) {
	var errs []string

	addr := strings.TrimSpace(raw.ListenAddress)
	if raw.Enabled && addr == "" {
		errs = append(errs, "grpc.listenAddress is required when grpc.enabled is true")
	}

	return domain.GRPCConfig{
		Enabled:       raw.Enabled,
		ListenAddress: addr,
	}, errs
}

func normalizeCacheConfig(raw rawCacheConfig) (domain.CacheConfig, []string) {
	var errs []string

	backend := strings.ToLower(strings.TrimSpace(raw.Backend))
	if backend == "" {
		backend = domain.DefaultCacheBackend
	}
	switch backend {
	case domain.CacheBackendMemory, domain.CacheBackendBolt:
	default:
		errs = append(errs, "cache.backend must be memory or bolt")
	}
	if backend == domain.CacheBackendBolt && strings.TrimSpace(raw.BoltPath) == "" {
		errs = append(errs, "cache.boltPath is required when cache.backend is bolt")
	}
	if raw.MaxEntries <= 0 {
		errs = append(errs, "cache.maxEntries must be > 0")
	}
	if raw.SweepSeconds < 0 {
		errs = append(errs, "cache.sweepSeconds must be >= 0")
	}

	return domain.CacheConfig{
		Backend:      backend,
		MaxEntries:   raw.MaxEntries,
		BoltPath:     strings.TrimSpace(raw.BoltPath),
		SweepSeconds: raw.SweepSeconds,
	}, errs
}

func normalizeBreakerConfig(raw rawBreakerConfig) (domain.BreakerConfig, []string) {
	var errs []string

	if raw.FailureThreshold <= 0 {
		errs = append(errs, "breaker.failureThreshold must be > 0")
	}
	if raw.RecoverySeconds <= 0 {
		errs = append(errs, "breaker.recoverySeconds must be > 0")
	}

	return domain.BreakerConfig{
		FailureThreshold: raw.FailureThreshold,
		RecoverySeconds:  raw.RecoverySeconds,
	}, errs
}

func normalizeStoreConfig(raw rawStoreConfig) (domain.StoreConfig, []string) {
	var errs []string

	path := strings.TrimSpace(raw.Path)
	if path == "" {
		errs = append(errs, "store.path is required")
	}

	return domain.StoreConfig{Path: path}, errs
}

func normalizeVectorStoreConfig(raw rawVectorStoreConfig) (domain.VectorStoreConfig, []string) {
	var errs []string

	baseURL := strings.TrimSpace(raw.BaseURL)
	if baseURL == "" {
		errs = append(errs, "vectorStore.baseURL is required")
	} else if parsed, err := url.ParseRequestURI(baseURL); err != nil || parsed.Host == "" ||
		(parsed.Scheme != "http" && parsed.Scheme != "https") {
		errs = append(errs, "vectorStore.baseURL must be a valid http(s) URL")
	}
	if raw.TimeoutSeconds <= 0 {
		errs = append(errs, "vectorStore.timeoutSeconds must be > 0")
	}

	return domain.VectorStoreConfig{
		BaseURL:        strings.TrimSuffix(baseURL, "/"),
		TimeoutSeconds: raw.TimeoutSeconds,
	}, errs
}

func normalizeRateLimitConfig(raw rawRateLimitConfig) (domain.RateLimitConfig, []string) {
	var errs []string

	if raw.Enabled {
		if raw.WindowSeconds <= 0 {
			errs = append(errs, "rateLimit.windowSeconds must be > 0")
		}
		if raw.MaxRequests <= 0 {
			errs = append(errs, "rateLimit.maxRequests must be > 0")
		}
	}

	return domain.RateLimitConfig{
		Enabled:       raw.Enabled,
		WindowSeconds: raw.WindowSeconds,
		MaxRequests:   raw.MaxRequests,
	}, errs
}

var knownClientTypes = map[string]domain.ClientType{
	string(domain.ClientIDE):    domain.ClientIDE,
	string(domain.ClientCLI):    domain.ClientCLI,
	string(domain.ClientWeb):    domain.ClientWeb,
	string(domain.ClientMobile): domain.ClientMobile,
}

var knownProjectTypes = map[string]domain.ProjectType{
	string(domain.ProjectWebApp):         domain.ProjectWebApp,
	string(domain.ProjectAPIService):     domain.ProjectAPIService,
	string(domain.ProjectLibrary):        domain.ProjectLibrary,
	string(domain.ProjectInfrastructure): domain.ProjectInfrastructure,
	string(domain.ProjectGeneric):        domain.ProjectGeneric,
}

var knownToolGroups = map[string]domain.ToolGroup{
	string(domain.GroupTaskManagement): domain.GroupTaskManagement,
	string(domain.GroupPlanning):       domain.GroupPlanning,
	string(domain.GroupDocuments):      domain.GroupDocuments,
	string(domain.GroupWorkflow):       domain.GroupWorkflow,
	string(domain.GroupDiagnostics):    domain.GroupDiagnostics,
}

// normalizeFilterOverrides validates the per-type policy overlays.
// Entries replace the built-in table for their type wholesale, so a
// typo in a type or group name is an error rather than a silent no-op.
func normalizeFilterOverrides(raw rawFilterConfig) (domain.FilterOverrides, []string) {
	var errs []string
	overrides := domain.FilterOverrides{}

	if len(raw.Clients) > 0 {
		overrides.Clients = make(map[domain.ClientType]domain.ClientToolPolicy, len(raw.Clients))
		for _, name := range sortedNames(raw.Clients) {
			client, ok := knownClientTypes[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				errs = append(errs, fmt.Sprintf("filters.clients.%s: unknown client type", name))
				continue
			}
			policy := raw.Clients[name]
			groups, groupErrs := parseToolGroups("clients", name, policy.EnabledGroups)
			errs = append(errs, groupErrs...)
			patterns, patternErrs := parsePatterns("clients", name, policy.DisabledPatterns)
			errs = append(errs, patternErrs...)
			if policy.MaxTools < 0 {
				errs = append(errs, fmt.Sprintf("filters.clients.%s: maxTools must be >= 0", name))
			}
			overrides.Clients[client] = domain.ClientToolPolicy{
				EnabledGroups:    groups,
				DisabledPatterns: patterns,
				MaxTools:         policy.MaxTools,
			}
		}
	}

	if len(raw.Projects) > 0 {
		overrides.Projects = make(map[domain.ProjectType]domain.ProjectToolPolicy, len(raw.Projects))
		for _, name := range sortedNames(raw.Projects) {
			project, ok := knownProjectTypes[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				errs = append(errs, fmt.Sprintf("filters.projects.%s: unknown project type", name))
				continue
			}
			policy := raw.Projects[name]
			groups, groupErrs := parseToolGroups("projects", name, policy.EnabledGroups)
			errs = append(errs, groupErrs...)
			patterns, patternErrs := parsePatterns("projects", name, policy.DisabledPatterns)
			errs = append(errs, patternErrs...)
			overrides.Projects[project] = domain.ProjectToolPolicy{
				EnabledGroups:    groups,
				DisabledPatterns: patterns,
			}
		}
	}

	return overrides, errs
}

func parseToolGroups(section, name string, raw []string) ([]domain.ToolGroup, []string) {
	var errs []string
	groups := make([]domain.ToolGroup, 0, len(raw))
	for _, entry := range raw {
		group, ok := knownToolGroups[strings.ToLower(strings.TrimSpace(entry))]
		if !ok {
			errs = append(errs, fmt.Sprintf("filters.%s.%s: unknown tool group %q", section, name, entry))
			continue
		}
		groups = append(groups, group)
	}
	return groups, errs
}

func parsePatterns(section, name string, raw []string) ([]string, []string) {
	var errs []string
	patterns := make([]string, 0, len(raw))
	for i, entry := range raw {
		pattern := strings.TrimSpace(entry)
		if pattern == "" {
			errs = append(errs, fmt.Sprintf("filters.%s.%s: disabledPatterns[%d] must not be empty", section, name, i))
			continue
		}
		patterns = append(patterns, pattern)
	}
	return patterns, errs
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
