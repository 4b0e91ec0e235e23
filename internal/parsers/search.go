package parsers

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
)

// searchProjectFiles walks the project root in lexical directory order,
// pruning excluded directories, and returns the file paths accepted by the
// accept callback. A positive limit stops the walk after that many matches, so
// a single-candidate lookup does not traverse the whole tree. Walk errors on
// individual entries are skipped; resolution is best effort.
func searchProjectFiles(projectRoot string, filter *ignore.Filter, limit int, accept func(filePath string, directoryEntry fs.DirEntry) bool) []string {
	var matchedPaths []string
	walkFunction := func(currentPath string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			return nil
		}
		if directoryEntry.IsDir() {
			if currentPath != projectRoot && filter != nil && filter.IsExcluded(currentPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter != nil && filter.IsExcluded(currentPath) {
			return nil
		}
		if !accept(currentPath, directoryEntry) {
			return nil
		}
		matchedPaths = append(matchedPaths, currentPath)
		if limit > 0 && len(matchedPaths) >= limit {
			return fs.SkipAll
		}
		return nil
	}
	_ = filepath.WalkDir(projectRoot, walkFunction)
	return matchedPaths
}

// firstProjectFile is searchProjectFiles limited to the first match. It
// returns "" when nothing under the root is accepted.
func firstProjectFile(projectRoot string, filter *ignore.Filter, accept func(filePath string, directoryEntry fs.DirEntry) bool) string {
	matchedPaths := searchProjectFiles(projectRoot, filter, 1, accept)
	if len(matchedPaths) == 0 {
		return ""
	}
	return matchedPaths[0]
}

// fileExists reports whether path names an existing regular file. Every
// resolver probes candidate paths through it before returning them.
func fileExists(path string) bool {
	fileInformation, statError := os.Stat(path)
	return statError == nil && fileInformation.Mode().IsRegular()
}

// directoryExists reports whether path names an existing directory.
func directoryExists(path string) bool {
	fileInformation, statError := os.Stat(path)
	return statError == nil && fileInformation.IsDir()
}

// sortedDirectoryFiles returns the names of regular files in the directory
// that pass the accept callback, in lexical order.
func sortedDirectoryFiles(directoryPath string, accept func(fileName string) bool) []string {
	directoryEntries, readError := os.ReadDir(directoryPath)
	if readError != nil {
		return nil
	}
	var fileNames []string
	for _, directoryEntry := range directoryEntries {
		if directoryEntry.IsDir() {
			continue
		}
		if accept != nil && !accept(directoryEntry.Name()) {
			continue
		}
		fileNames = append(fileNames, directoryEntry.Name())
	}
	return fileNames
}
