package filter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"webmcpd/internal/domain"
	"webmcpd/internal/infra/telemetry"
)

// ProjectManifest is the filtering-relevant content of a project's
// .webmcp.toml file.
type ProjectManifest struct {
	Path             string
	Type             domain.ProjectType
	DisabledPatterns []string
}

type manifestFile struct {
	Project manifestProject `toml:"project"`
}

type manifestProject struct {
	Type          string   `toml:"type"`
	DisabledTools []string `toml:"disabled_tools"`
}

// ManifestLoader reads project manifests off disk.
type ManifestLoader struct {
	logger *zap.Logger
}

func NewManifestLoader(logger *zap.Logger) *ManifestLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ManifestLoader{logger: logger.Named("manifest")}
}

// Load reads dir/.webmcp.toml. A missing file is not an error: the
// project is treated as generic with no extra disabled patterns. A
// present but unparsable file is an INVALID_ARGUMENT error so a typo
// cannot silently widen tool visibility.
func (l *ManifestLoader) Load(dir string) (ProjectManifest, error) {
	const errOp = "filter.LoadManifest"

	path := filepath.Join(dir, domain.DefaultManifestFileName)
	manifest := ProjectManifest{Path: path, Type: domain.ProjectGeneric}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return manifest, nil
		}
		return manifest, domain.E(domain.CodeInternal, errOp,
			fmt.Sprintf("read %s", path), err)
	}

	var parsed manifestFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return manifest, domain.E(domain.CodeInvalidArgument, errOp,
			fmt.Sprintf("parse %s", path), err)
	}

	manifest.Type = domain.NormalizeProjectType(parsed.Project.Type)
	for _, pattern := range parsed.Project.DisabledTools {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		manifest.DisabledPatterns = append(manifest.DisabledPatterns, pattern)
	}

	l.logger.Info("project manifest loaded",
		telemetry.EventField(telemetry.EventManifestReload),
		zap.String("path", path),
		zap.String(telemetry.FieldProjectType, string(manifest.Type)),
		zap.Int("disabled_patterns", len(manifest.DisabledPatterns)),
	)
	return manifest, nil
}
