// Package ignore evaluates path-exclusion rules for filesystem traversal.
//
// A Filter combines configured excluded-folder and excluded-file patterns with
// gitignore rules discovered under the project root. Every directory descent
// and every filesystem-search result in import resolution is checked against
// the filter before use; unfiltered recursive globbing over dependency
// directories is the dominant cost risk of the analyzer.
package ignore

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

// GitIgnoreRule is one ordered exclusion rule in gitignore form. Later rules
// override earlier ones for the same path, and a negated rule re-includes a
// path excluded by an earlier rule.
type GitIgnoreRule struct {
	// Pattern is the glob pattern with any leading "!" and trailing "/" stripped.
	Pattern string
	// Negated reports that the rule re-includes matching paths.
	Negated bool
	// DirectoryOnly reports that the pattern carried a trailing slash.
	DirectoryOnly bool
	// BaseDirectory is the slash-separated directory, relative to the project
	// root, that the rule was discovered in. Empty for root-level rules.
	BaseDirectory string
}

// matches reports whether the rule applies to the slash-separated relative path.
func (rule GitIgnoreRule) matches(relativePath string) bool {
	target := relativePath
	if rule.BaseDirectory != "" {
		directoryPrefix := rule.BaseDirectory + "/"
		if !strings.HasPrefix(target, directoryPrefix) {
			return false
		}
		target = strings.TrimPrefix(target, directoryPrefix)
	}
	patternValue := strings.TrimPrefix(rule.Pattern, "/")
	if strings.Contains(patternValue, "/") {
		if isMatched, matchError := doublestar.Match(patternValue, target); matchError == nil && isMatched {
			return true
		}
		isMatched, matchError := doublestar.Match(patternValue+"/**", target)
		return matchError == nil && isMatched
	}
	for _, pathSegment := range strings.Split(target, "/") {
		if isMatched, matchError := doublestar.Match(patternValue, pathSegment); matchError == nil && isMatched {
			return true
		}
	}
	return false
}

// Filter answers exclusion queries for paths under a single project root.
type Filter struct {
	projectRoot string
	rules       []GitIgnoreRule
}

// Options configures filter construction.
type Options struct {
	// ExcludedFolders lists folder names or globs excluded at any nesting depth.
	ExcludedFolders []string
	// ExcludedFiles lists file-name globs excluded everywhere.
	ExcludedFiles []string
	// UseGitignore enables discovery of .gitignore files under the root.
	UseGitignore bool
}

// NewFilter builds a Filter for projectRoot. Configured patterns are evaluated
// before discovered gitignore rules, so gitignore negations can re-include
// paths the configuration excluded.
func NewFilter(projectRoot string, options Options) (*Filter, error) {
	absoluteRoot, absoluteError := filepath.Abs(projectRoot)
	if absoluteError != nil {
		return nil, fmt.Errorf("resolve project root %s: %w", projectRoot, absoluteError)
	}

	var orderedRules []GitIgnoreRule
	orderedRules = append(orderedRules, GitIgnoreRule{Pattern: utils.GitDirectoryName, DirectoryOnly: true})
	for _, folderPattern := range utils.DeduplicatePatterns(options.ExcludedFolders) {
		parsedRule, ok := parseRuleLine(folderPattern, "")
		if ok {
			parsedRule.DirectoryOnly = true
			orderedRules = append(orderedRules, parsedRule)
		}
	}
	for _, filePattern := range utils.DeduplicatePatterns(options.ExcludedFiles) {
		if parsedRule, ok := parseRuleLine(filePattern, ""); ok {
			orderedRules = append(orderedRules, parsedRule)
		}
	}

	filter := &Filter{projectRoot: absoluteRoot, rules: orderedRules}

	if options.UseGitignore {
		discoveredRules, discoveryError := filter.discoverGitignoreRules()
		if discoveryError != nil {
			return nil, discoveryError
		}
		filter.rules = append(filter.rules, discoveredRules...)
	}
	return filter, nil
}

// IsExcluded reports whether the path is excluded from traversal and search.
// The path may be absolute or relative to the project root; paths outside the
// root are never excluded by the filter (root validation happens elsewhere).
func (filter *Filter) IsExcluded(path string) bool {
	relativePath := path
	if filepath.IsAbs(path) {
		relativePath = utils.RelativePathOrSelf(path, filter.projectRoot)
	}
	relativePath = filepath.ToSlash(filepath.Clean(relativePath))
	if relativePath == "." || strings.HasPrefix(relativePath, "../") || relativePath == ".." {
		return false
	}

	excluded := false
	for _, currentRule := range filter.rules {
		if !currentRule.matches(relativePath) {
			continue
		}
		excluded = !currentRule.Negated
	}
	return excluded
}

// Rules returns the ordered rule list the filter evaluates.
func (filter *Filter) Rules() []GitIgnoreRule {
	return filter.rules
}

// discoverGitignoreRules walks the project root and aggregates gitignore rules.
// Rules found in nested directories are recorded with that directory's relative
// path so they only apply beneath it. Directories already excluded by the
// configured patterns are not descended into.
func (filter *Filter) discoverGitignoreRules() ([]GitIgnoreRule, error) {
	var discoveredRules []GitIgnoreRule
	walkFunction := func(currentPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return nil
		}
		if !directoryEntry.IsDir() {
			return nil
		}
		if currentPath != filter.projectRoot && filter.IsExcluded(currentPath) {
			return filepath.SkipDir
		}
		relativeDirectory := utils.RelativePathOrSelf(currentPath, filter.projectRoot)
		baseDirectory := ""
		if relativeDirectory != "." {
			baseDirectory = relativeDirectory
		}
		fileRules, loadError := loadGitignoreRules(filepath.Join(currentPath, utils.GitIgnoreFileName), baseDirectory)
		if loadError != nil {
			return loadError
		}
		discoveredRules = append(discoveredRules, fileRules...)
		return nil
	}
	if walkError := filepath.WalkDir(filter.projectRoot, walkFunction); walkError != nil {
		return nil, fmt.Errorf("discover gitignore rules under %s: %w", filter.projectRoot, walkError)
	}
	return discoveredRules, nil
}

// loadGitignoreRules reads one gitignore file into ordered rules. A missing
// file yields no rules and no error.
func loadGitignoreRules(gitignorePath string, baseDirectory string) ([]GitIgnoreRule, error) {
	fileHandle, openError := os.Open(gitignorePath)
	if openError != nil {
		if os.IsNotExist(openError) {
			return nil, nil
		}
		return nil, openError
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close %s: %v\n", gitignorePath, closeError)
		}
	}()

	var fileRules []GitIgnoreRule
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		if parsedRule, ok := parseRuleLine(scanner.Text(), baseDirectory); ok {
			fileRules = append(fileRules, parsedRule)
		}
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return fileRules, nil
}

// parseRuleLine converts one pattern line into a rule. Blank lines and
// comments report ok=false.
func parseRuleLine(line string, baseDirectory string) (GitIgnoreRule, bool) {
	trimmedLine := strings.TrimSpace(line)
	if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
		return GitIgnoreRule{}, false
	}
	parsedRule := GitIgnoreRule{BaseDirectory: baseDirectory}
	if strings.HasPrefix(trimmedLine, "!") {
		parsedRule.Negated = true
		trimmedLine = strings.TrimPrefix(trimmedLine, "!")
	}
	if strings.HasSuffix(trimmedLine, "/") {
		parsedRule.DirectoryOnly = true
		trimmedLine = strings.TrimSuffix(trimmedLine, "/")
	}
	parsedRule.Pattern = strings.ReplaceAll(trimmedLine, "\\", "/")
	if parsedRule.Pattern == "" {
		return GitIgnoreRule{}, false
	}
	return parsedRule, true
}
