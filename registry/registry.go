package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-hwval/types"
)

// DefaultReservedSuffix marks directories that are never searched for test cases
const DefaultReservedSuffix = "__"

// Registry holds the test cases discovered under a test directory
type Registry struct {
	config    Config
	testCases []types.TestCaseDescriptor
}

// Config contains registry configuration
type Config struct {
	Log            log.Logger
	TestDir        string
	ReservedSuffix string
}

// NewRegistry creates a new registry instance and discovers the test cases under cfg.TestDir
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.TestDir == "" {
		return nil, fmt.Errorf("test directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.ReservedSuffix == "" {
		cfg.ReservedSuffix = DefaultReservedSuffix
	}

	r := &Registry{config: cfg}
	if err := r.load(); err != nil {
		return nil, err
	}
	cfg.Log.Debug("Registry loaded", "len(testCases)", len(r.testCases))
	return r, nil
}

func (r *Registry) load() error {
	testCases, err := Discover(r.config.TestDir, r.config.ReservedSuffix, r.config.Log)
	if err != nil {
		return fmt.Errorf("failed to discover test cases: %w", err)
	}
	r.testCases = testCases
	return nil
}

// GetTestCases returns all discovered test cases in lexical path order
func (r *Registry) GetTestCases() []types.TestCaseDescriptor {
	return r.testCases
}

// Discover walks root and returns a descriptor for every directory holding a
// testcase.yaml. Directories whose name ends in reservedSuffix are skipped
// along with everything below them, and directories that cannot be read are
// left out silently. The only error is a root that is missing or not a
// directory.
func Discover(root, reservedSuffix string, logger log.Logger) ([]types.TestCaseDescriptor, error) {
	if logger == nil {
		logger = log.NewLogger(log.DiscardHandler())
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("test directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("test directory %s is not a directory", root)
	}

	var found []types.TestCaseDescriptor
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries contribute nothing
			logger.Debug("Skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && reservedSuffix != "" && strings.HasSuffix(d.Name(), reservedSuffix) {
			logger.Debug("Skipping reserved directory", "path", path)
			return fs.SkipDir
		}

		descPath := filepath.Join(path, types.DescriptorFile)
		if _, err := os.Stat(descPath); err != nil {
			return nil
		}
		desc := loadDescriptor(root, path, descPath)
		if desc.LoadErr != nil {
			logger.Warn("Malformed test case descriptor", "path", descPath, "err", desc.LoadErr)
		} else {
			logger.Debug("Discovered test case", "id", desc.ID, "kind", desc.Kind, "dir", path)
		}
		found = append(found, desc)
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, fs.SkipDir) {
		return nil, fmt.Errorf("walking %s: %w", root, walkErr)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Dir < found[j].Dir })
	return found, nil
}

// loadDescriptor reads a testcase.yaml. Failures are carried on the descriptor
// rather than returned so the test case can be reported as invalid.
func loadDescriptor(root, dir, descPath string) types.TestCaseDescriptor {
	fallback := types.TestCaseDescriptor{
		ID:    filepath.Base(dir),
		Suite: defaultSuite(root, dir),
		Dir:   dir,
	}

	data, err := os.ReadFile(descPath)
	if err != nil {
		fallback.LoadErr = fmt.Errorf("reading %s: %w", descPath, err)
		return fallback
	}

	var desc types.TestCaseDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		fallback.LoadErr = fmt.Errorf("parsing %s: %w", descPath, err)
		return fallback
	}
	desc.Dir = dir
	if desc.ID == "" {
		desc.ID = fallback.ID
	}
	if desc.Suite == "" {
		desc.Suite = fallback.Suite
	}
	if desc.Kind == "" {
		desc.LoadErr = fmt.Errorf("%s: kind is required", descPath)
	}
	if desc.Config != "" && filepath.IsAbs(desc.Config) {
		desc.LoadErr = fmt.Errorf("%s: config must be relative to the test directory", descPath)
	}
	return desc
}

// defaultSuite names the suite after the parent directory of the test case,
// relative to root. Test cases directly under root have no suite.
func defaultSuite(root, dir string) string {
	rel, err := filepath.Rel(root, filepath.Dir(dir))
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
