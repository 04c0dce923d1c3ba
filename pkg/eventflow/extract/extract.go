// Package extract scans source trees for publish/subscribe call sites
// and turns them into eventflow declarations.
//
// The events directory is laid out as one subdirectory per namespace,
// with event types declared inside (`type OrderPlaced struct`). The
// agents directory holds one agent per file; the file stem is the agent
// name and the agent's publish/subscribe calls are matched by
// configurable regular expressions.
package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/randalmurphal/eventflow/pkg/eventflow"
)

// DefaultNamespace is assigned to events whose type was not found in
// the events directory, and to agents that publish nothing.
const DefaultNamespace = "default"

var (
	defaultEventPattern     = regexp.MustCompile(`type\s+([A-Z][A-Za-z0-9_]*)\s+struct`)
	defaultPublishPattern   = regexp.MustCompile(`\.Publish\(\s*&?([A-Z][A-Za-z0-9_]*)`)
	defaultSubscribePattern = regexp.MustCompile(`\.Subscribe\(\s*&?([A-Z][A-Za-z0-9_]*)`)
)

// Extractor scans an agents directory (and optionally an events
// directory) and produces the declarations found in it.
type Extractor struct {
	agentsDir string
	eventsDir string

	eventPattern     *regexp.Regexp
	publishPattern   *regexp.Regexp
	subscribePattern *regexp.Regexp
	fileExt          string
	logger           *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithEventPattern overrides the pattern that finds event type
// declarations. Capture group 1 must be the event name.
func WithEventPattern(re *regexp.Regexp) Option {
	return func(e *Extractor) { e.eventPattern = re }
}

// WithPublishPattern overrides the pattern that finds publish call
// sites. Capture group 1 must be the event name.
func WithPublishPattern(re *regexp.Regexp) Option {
	return func(e *Extractor) { e.publishPattern = re }
}

// WithSubscribePattern overrides the pattern that finds subscribe call
// sites. Capture group 1 must be the event name.
func WithSubscribePattern(re *regexp.Regexp) Option {
	return func(e *Extractor) { e.subscribePattern = re }
}

// WithFileExtension overrides the source file extension scanned in both
// directories (default ".go").
func WithFileExtension(ext string) Option {
	return func(e *Extractor) { e.fileExt = ext }
}

// WithLogger sets the logger used for skipped-file warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) { e.logger = logger }
}

// New creates an Extractor. eventsDir may be empty, in which case every
// event lands in DefaultNamespace.
func New(agentsDir, eventsDir string, opts ...Option) *Extractor {
	e := &Extractor{
		agentsDir:        agentsDir,
		eventsDir:        eventsDir,
		eventPattern:     defaultEventPattern,
		publishPattern:   defaultPublishPattern,
		subscribePattern: defaultSubscribePattern,
		fileExt:          ".go",
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract scans both directories and returns the declarations in a
// deterministic order: agent files sorted by name, subscriptions before
// publications within each file.
func (e *Extractor) Extract() ([]eventflow.Declaration, error) {
	eventNamespaces, err := e.scanEvents()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(e.agentsDir)
	if err != nil {
		return nil, fmt.Errorf("reading agents directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !e.isSource(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var decls []eventflow.Declaration
	for _, name := range names {
		path := filepath.Join(e.agentsDir, name)
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			e.logger.Warn("skipping unreadable agent file", "path", path, "error", readErr)
			continue
		}
		decls = append(decls, e.extractAgent(strings.TrimSuffix(name, e.fileExt), string(content), eventNamespaces)...)
	}
	return decls, nil
}

// EventNamespaces returns the event name to namespace mapping built
// from the events directory.
func (e *Extractor) EventNamespaces() (map[string]string, error) {
	return e.scanEvents()
}

// scanEvents maps event type names to the namespace directory they are
// declared under. A missing or empty events directory yields an empty
// mapping, not an error.
func (e *Extractor) scanEvents() (map[string]string, error) {
	mapping := make(map[string]string)
	if e.eventsDir == "" {
		return mapping, nil
	}

	namespaces, err := os.ReadDir(e.eventsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return mapping, nil
		}
		return nil, fmt.Errorf("reading events directory: %w", err)
	}

	for _, nsEntry := range namespaces {
		if !nsEntry.IsDir() || strings.HasPrefix(nsEntry.Name(), ".") {
			continue
		}
		namespace := nsEntry.Name()
		nsDir := filepath.Join(e.eventsDir, namespace)

		files, readErr := os.ReadDir(nsDir)
		if readErr != nil {
			e.logger.Warn("skipping unreadable namespace directory", "path", nsDir, "error", readErr)
			continue
		}
		for _, file := range files {
			if file.IsDir() || !e.isSource(file.Name()) {
				continue
			}
			path := filepath.Join(nsDir, file.Name())
			content, fileErr := os.ReadFile(path)
			if fileErr != nil {
				e.logger.Warn("skipping unreadable event file", "path", path, "error", fileErr)
				continue
			}
			for _, match := range e.eventPattern.FindAllStringSubmatch(string(content), -1) {
				mapping[match[1]] = namespace
			}
		}
	}
	return mapping, nil
}

// extractAgent pulls the declarations out of one agent file. The agent
// namespace is the most common namespace among its published events,
// ignoring DefaultNamespace; ties go to the lexicographically smallest.
func (e *Extractor) extractAgent(agentName, content string, eventNamespaces map[string]string) []eventflow.Declaration {
	published := e.matchEvents(e.publishPattern, content, eventNamespaces)
	subscribed := e.matchEvents(e.subscribePattern, content, eventNamespaces)

	agent := eventflow.Item{Name: agentName, Namespace: agentNamespace(published)}

	decls := make([]eventflow.Declaration, 0, len(subscribed)+len(published))
	for _, event := range subscribed {
		decls = append(decls, eventflow.Declaration{Agent: agent, Event: event, Role: eventflow.RoleSubscribe})
	}
	for _, event := range published {
		decls = append(decls, eventflow.Declaration{Agent: agent, Event: event, Role: eventflow.RolePublish})
	}
	return decls
}

func (e *Extractor) matchEvents(re *regexp.Regexp, content string, eventNamespaces map[string]string) []eventflow.Item {
	var items []eventflow.Item
	for _, match := range re.FindAllStringSubmatch(content, -1) {
		name := match[1]
		namespace, ok := eventNamespaces[name]
		if !ok {
			namespace = DefaultNamespace
		}
		items = append(items, eventflow.Item{Name: name, Namespace: namespace})
	}
	return items
}

func (e *Extractor) isSource(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	if strings.HasSuffix(name, "_test"+e.fileExt) {
		return false
	}
	return strings.HasSuffix(name, e.fileExt)
}

func agentNamespace(published []eventflow.Item) string {
	counts := make(map[string]int)
	for _, event := range published {
		if event.Namespace != DefaultNamespace {
			counts[event.Namespace]++
		}
	}
	best := DefaultNamespace
	bestCount := 0
	for namespace, count := range counts {
		if count > bestCount || (count == bestCount && namespace < best) {
			best = namespace
			bestCount = count
		}
	}
	return best
}
