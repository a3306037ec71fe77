package template

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/khanhnv2901/seca-scan/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/seca-scan/internal/shared/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// knownKeys are the top-level template keys the engine understands.
var knownKeys = map[string]struct{}{
	"id":   {},
	"info": {},
	"http": {},
	"ssl":  {},
	"dns":  {},
}

// Parse decodes a single YAML template.
func Parse(data []byte) (*Template, error) {
	tmpl, _, err := parse(data)
	return tmpl, err
}

func parse(data []byte) (*Template, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", sharedErrors.ErrTemplateParse, err)
	}
	if len(root.Content) == 0 {
		return nil, nil, fmt.Errorf("%w: empty document", sharedErrors.ErrTemplateParse)
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nil, fmt.Errorf("%w: line %d: template must be a mapping", sharedErrors.ErrTemplateParse, doc.Line)
	}

	var unknown []string
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i].Value
		if _, ok := knownKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}

	var tmpl Template
	if err := doc.Decode(&tmpl); err != nil {
		return nil, unknown, fmt.Errorf("%w: %v", sharedErrors.ErrTemplateParse, err)
	}
	if strings.TrimSpace(tmpl.ID) == "" {
		return nil, unknown, sharedErrors.ErrTemplateMissingID
	}

	return &tmpl, unknown, nil
}

// Loader reads templates from the filesystem.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader. A nil logger disables diagnostics.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load reads a single template file or every template under a directory.
func (l *Loader) Load(path string) ([]*Template, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat templates path: %w", err)
	}

	if info.IsDir() {
		return l.LoadDir(path)
	}

	tmpl, err := l.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*Template{tmpl}, nil
}

// LoadFile reads and parses one template file.
func (l *Loader) LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	tmpl, unknown, err := parse(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(unknown) > 0 {
		l.logger.Debug("ignoring unknown template keys",
			zap.String("template", tmpl.ID),
			zap.String("path", path),
			zap.Strings("keys", unknown),
		)
	}

	if sev := scan.Severity(tmpl.Info.Severity); !sev.IsKnown() {
		l.logger.Warn("unknown template severity",
			zap.String("template", tmpl.ID),
			zap.String("path", path),
			zap.String("severity", tmpl.Info.Severity),
		)
	}

	tmpl.SourcePath = path
	return tmpl, nil
}

// LoadDir walks dir recursively and loads every .yaml/.yml file in lexical
// order. Files that fail to parse are logged and skipped.
func (l *Loader) LoadDir(dir string) ([]*Template, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if isTemplateFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk templates directory: %w", err)
	}
	sort.Strings(paths)

	templates := make([]*Template, 0, len(paths))
	for _, path := range paths {
		tmpl, err := l.LoadFile(path)
		if err != nil {
			l.logger.Warn("skipping template", zap.String("path", path), zap.Error(err))
			continue
		}
		templates = append(templates, tmpl)
	}

	return templates, nil
}

func isTemplateFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// FilterByTags keeps templates carrying at least one of the tags. An empty tag
// list keeps everything.
func FilterByTags(templates []*Template, tags []string) []*Template {
	var wanted []string
	for _, t := range tags {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				wanted = append(wanted, part)
			}
		}
	}
	if len(wanted) == 0 {
		return templates
	}

	filtered := make([]*Template, 0, len(templates))
	for _, tmpl := range templates {
		for _, tag := range wanted {
			if tmpl.HasTag(tag) {
				filtered = append(filtered, tmpl)
				break
			}
		}
	}
	return filtered
}
