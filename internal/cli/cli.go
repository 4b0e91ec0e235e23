// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YickelFuboo/moling-coding-service/internal/analyzer"
	"github.com/YickelFuboo/moling-coding-service/internal/config"
	"github.com/YickelFuboo/moling-coding-service/internal/ignore"
	"github.com/YickelFuboo/moling-coding-service/internal/output"
	"github.com/YickelFuboo/moling-coding-service/internal/parsers"
	"github.com/YickelFuboo/moling-coding-service/internal/services/clipboard"
	"github.com/YickelFuboo/moling-coding-service/internal/symbolcache"
	"github.com/YickelFuboo/moling-coding-service/internal/tokenizer"
	"github.com/YickelFuboo/moling-coding-service/internal/types"
	"github.com/YickelFuboo/moling-coding-service/internal/utils"
)

const (
	rootFlagName          = "root"
	exclusionFlagName     = "e"
	excludeFileFlagName   = "exclude-file"
	noGitignoreFlagName   = "no-gitignore"
	depthFlagName         = "depth"
	maxNodesFlagName      = "max-nodes"
	concurrencyFlagName   = "concurrency"
	formatFlagName        = "format"
	tokensFlagName        = "tokens"
	modelFlagName         = "model"
	copyFlagName          = "copy"
	configFlagName        = "config"
	versionFlagName       = "version"
	versionTemplate       = "codemap version: %s\n"
	defaultRootDirectory  = "."
	rootUse               = "codemap"
	rootShortDescription  = "codemap command line interface"
	rootLongDescription   = `codemap builds dependency trees from source code.
The function command expands the call tree of one function; the file command
expands the import tree of one file. Use --format to select raw or json
output and --version to print the application version.`
	versionFlagDescription = "display application version"

	functionUse              = "function <file> <function>"
	fileUse                  = "file <path>"
	functionAlias            = "fn"
	fileAlias                = "f"
	functionShortDescription = "build a function call tree (" + functionAlias + ")"
	fileShortDescription     = "build a file import tree (" + fileAlias + ")"

	// functionLongDescription provides detailed help for the function command.
	functionLongDescription = `Build the dependency tree of a function, following calls through project
imports. Use --depth and --max-nodes to bound expansion.`
	// functionUsageExample demonstrates function command usage.
	functionUsageExample = `  # Expand main's call tree three levels deep
  codemap function ./cmd/server/main.go main --depth 3

  # JSON output with token counts
  codemap function app/service.py handle_request --tokens`

	// fileLongDescription provides detailed help for the file command.
	fileLongDescription = `Build the import dependency tree of a file. Imports that resolve outside the
project appear as external leaves.`
	// fileUsageExample demonstrates file command usage.
	fileUsageExample = `  # Expand a module's import tree
  codemap file src/index.js

  # Exclude generated folders
  codemap file -e gen -e build main.go`

	rootFlagDescription             = "project root directory"
	exclusionFlagDescription        = "exclude folder pattern"
	excludeFileFlagDescription      = "exclude file pattern"
	disableGitignoreFlagDescription = "do not use .gitignore"
	depthFlagDescription            = "maximum expansion depth"
	maxNodesFlagDescription         = "maximum number of tree nodes"
	concurrencyFlagDescription      = "maximum concurrent expansions"
	formatFlagDescription           = "output format"
	tokensFlagDescription           = "include token counts"
	modelFlagDescription            = "tokenizer model to use for token counting"
	copyFlagDescription             = "copy output to clipboard"
	configFlagDescription           = "configuration file path"
	defaultTokenizerModelName       = "gpt-4o"

	invalidFormatMessage        = "Invalid format value '%s'"
	warningTokenCountFormat     = "Warning: failed to count tokens for %s: %v\n"
	warningClipboardFormat      = "Warning: failed to copy output to clipboard: %v\n"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
)

// isSupportedFormat reports whether the provided format is recognized.
func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON:
		return true
	default:
		return false
	}
}

// Execute runs the codemap application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var showVersion bool
	var configurationPath string

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.PersistentFlags().StringVar(&configurationPath, configFlagName, "", configFlagDescription)
	rootCommand.AddCommand(
		createFunctionCommand(&configurationPath),
		createFileCommand(&configurationPath),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// analysisOptions stores the flag values shared by both analysis commands.
type analysisOptions struct {
	rootDirectory    string
	exclusionFolders []string
	exclusionFiles   []string
	disableGitignore bool
	maximumDepth     int
	maximumNodes     int
	concurrency      int
	outputFormat     string
	tokensEnabled    bool
	tokenizerModel   string
	copyToClipboard  bool
}

// addAnalysisFlags registers the shared analysis flags on the command.
func addAnalysisFlags(command *cobra.Command, options *analysisOptions) {
	command.Flags().StringVar(&options.rootDirectory, rootFlagName, defaultRootDirectory, rootFlagDescription)
	command.Flags().StringArrayVarP(&options.exclusionFolders, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	command.Flags().StringArrayVar(&options.exclusionFiles, excludeFileFlagName, nil, excludeFileFlagDescription)
	command.Flags().BoolVar(&options.disableGitignore, noGitignoreFlagName, false, disableGitignoreFlagDescription)
	command.Flags().IntVar(&options.maximumDepth, depthFlagName, analyzer.DefaultMaxDepth, depthFlagDescription)
	command.Flags().IntVar(&options.maximumNodes, maxNodesFlagName, analyzer.DefaultMaxNodes, maxNodesFlagDescription)
	command.Flags().IntVar(&options.concurrency, concurrencyFlagName, analyzer.DefaultConcurrency, concurrencyFlagDescription)
	command.Flags().StringVar(&options.outputFormat, formatFlagName, types.FormatJSON, formatFlagDescription)
	command.Flags().BoolVar(&options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	command.Flags().StringVar(&options.tokenizerModel, modelFlagName, defaultTokenizerModelName, modelFlagDescription)
	command.Flags().BoolVar(&options.copyToClipboard, copyFlagName, false, copyFlagDescription)
}

// createFunctionCommand returns the function subcommand.
func createFunctionCommand(configurationPath *string) *cobra.Command {
	var options analysisOptions

	functionCommand := &cobra.Command{
		Use:     functionUse,
		Aliases: []string{functionAlias},
		Short:   functionShortDescription,
		Long:    functionLongDescription,
		Example: functionUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runAnalysis(command, &options, *configurationPath, func(executionContext context.Context, treeAnalyzer *analyzer.Analyzer) (*types.DependencyTree, error) {
				return treeAnalyzer.AnalyzeFunction(executionContext, arguments[0], arguments[1])
			})
		},
	}
	addAnalysisFlags(functionCommand, &options)
	return functionCommand
}

// createFileCommand returns the file subcommand.
func createFileCommand(configurationPath *string) *cobra.Command {
	var options analysisOptions

	fileCommand := &cobra.Command{
		Use:     fileUse,
		Aliases: []string{fileAlias},
		Short:   fileShortDescription,
		Long:    fileLongDescription,
		Example: fileUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runAnalysis(command, &options, *configurationPath, func(executionContext context.Context, treeAnalyzer *analyzer.Analyzer) (*types.DependencyTree, error) {
				return treeAnalyzer.AnalyzeFile(executionContext, arguments[0])
			})
		},
	}
	addAnalysisFlags(fileCommand, &options)
	return fileCommand
}

// runAnalysis wires the filter, registry, cache, and analyzer together and
// renders the resulting tree. Configuration file values apply wherever the
// corresponding flag was not set on the command line.
func runAnalysis(command *cobra.Command, options *analysisOptions, configurationPath string, analyze func(context.Context, *analyzer.Analyzer) (*types.DependencyTree, error)) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}

	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: configurationPath,
	})
	if configurationError != nil {
		return configurationError
	}
	commandConfiguration := applicationConfiguration.Function
	if command.Name() == "file" {
		commandConfiguration = applicationConfiguration.File
	}
	applyConfigurationDefaults(command, options, commandConfiguration)

	if !isSupportedFormat(options.outputFormat) {
		return fmt.Errorf(invalidFormatMessage, options.outputFormat)
	}

	absoluteRoot, absoluteError := filepath.Abs(options.rootDirectory)
	if absoluteError != nil {
		return fmt.Errorf("resolve root %s: %w", options.rootDirectory, absoluteError)
	}

	excludedFolders := append(append([]string{}, config.DefaultExcludedFolders...), options.exclusionFolders...)
	excludedFiles := append(append([]string{}, config.DefaultExcludedFiles...), options.exclusionFiles...)
	pathFilter, filterError := ignore.NewFilter(absoluteRoot, ignore.Options{
		ExcludedFolders: excludedFolders,
		ExcludedFiles:   excludedFiles,
		UseGitignore:    !options.disableGitignore,
	})
	if filterError != nil {
		return filterError
	}

	applicationLogger, loggerError := utils.NewApplicationLogger()
	if loggerError != nil {
		return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
	}
	defer applicationLogger.Sync()

	parserRegistry := parsers.NewRegistry(pathFilter)
	symbolCache := symbolcache.NewCache(parserRegistry)
	treeAnalyzer, analyzerError := analyzer.New(analyzer.Settings{
		ProjectRoot: absoluteRoot,
		MaxDepth:    options.maximumDepth,
		MaxNodes:    options.maximumNodes,
		Concurrency: options.concurrency,
	}, parserRegistry, symbolCache, pathFilter, applicationLogger)
	if analyzerError != nil {
		return analyzerError
	}

	dependencyTree, analysisError := analyze(command.Context(), treeAnalyzer)
	if analysisError != nil {
		return analysisError
	}

	if options.tokensEnabled {
		tokenCounter, _, counterError := tokenizer.NewCounter(tokenizer.Config{Model: options.tokenizerModel})
		if counterError != nil {
			return counterError
		}
		annotateTokenCounts(dependencyTree.Root, tokenCounter, symbolCache, absoluteRoot)
	}

	renderedOutput, renderError := renderTree(dependencyTree, options.outputFormat)
	if renderError != nil {
		return renderError
	}
	fmt.Println(renderedOutput)

	if options.copyToClipboard {
		if copyError := clipboard.NewService().Copy(renderedOutput); copyError != nil {
			fmt.Fprintf(os.Stderr, warningClipboardFormat, copyError)
		}
	}
	return nil
}

// applyConfigurationDefaults overlays configuration file values onto flags the
// user did not set explicitly.
func applyConfigurationDefaults(command *cobra.Command, options *analysisOptions, commandConfiguration config.AnalysisCommandConfiguration) {
	flagSet := command.Flags()
	if !flagSet.Changed(formatFlagName) && commandConfiguration.Format != "" {
		options.outputFormat = commandConfiguration.Format
	}
	if !flagSet.Changed(depthFlagName) && commandConfiguration.Depth != nil {
		options.maximumDepth = *commandConfiguration.Depth
	}
	if !flagSet.Changed(maxNodesFlagName) && commandConfiguration.MaxNodes != nil {
		options.maximumNodes = *commandConfiguration.MaxNodes
	}
	if !flagSet.Changed(concurrencyFlagName) && commandConfiguration.Concurrency != nil {
		options.concurrency = *commandConfiguration.Concurrency
	}
	if !flagSet.Changed(tokensFlagName) && commandConfiguration.Tokens.Enabled != nil {
		options.tokensEnabled = *commandConfiguration.Tokens.Enabled
	}
	if !flagSet.Changed(modelFlagName) && commandConfiguration.Tokens.Model != "" {
		options.tokenizerModel = commandConfiguration.Tokens.Model
	}
	if !flagSet.Changed(copyFlagName) && commandConfiguration.Clipboard != nil {
		options.copyToClipboard = *commandConfiguration.Clipboard
	}
	if !flagSet.Changed(noGitignoreFlagName) && commandConfiguration.Paths.UseGitignore != nil {
		options.disableGitignore = !*commandConfiguration.Paths.UseGitignore
	}
	options.exclusionFolders = append(options.exclusionFolders, commandConfiguration.Paths.ExcludeFolders...)
	options.exclusionFiles = append(options.exclusionFiles, commandConfiguration.Paths.ExcludeFiles...)
}

// renderTree renders the tree in the requested format.
func renderTree(dependencyTree *types.DependencyTree, outputFormat string) (string, error) {
	if outputFormat == types.FormatRaw {
		return output.RenderRaw(dependencyTree), nil
	}
	return output.RenderJSON(dependencyTree)
}

// annotateTokenCounts fills in token counts for located nodes: function nodes
// count their body, file nodes count the whole file. Leaves without project
// files keep a zero count.
func annotateTokenCounts(node *types.DependencyNode, tokenCounter tokenizer.Counter, symbolCache *symbolcache.Cache, projectRoot string) {
	if node == nil {
		return
	}
	if node.Info.FilePath != "" && (node.Type == types.NodeTypeFunction || node.Type == types.NodeTypeFile) {
		absolutePath := node.Info.FilePath
		if !filepath.IsAbs(absolutePath) {
			absolutePath = filepath.Join(projectRoot, filepath.FromSlash(node.Info.FilePath))
		}
		if fileSymbols, symbolsError := symbolCache.FileSymbols(absolutePath); symbolsError == nil {
			countedText := fileSymbols.Content
			if node.Type == types.NodeTypeFunction {
				if declaredFunction := fileSymbols.Function(node.Info.Name); declaredFunction != nil {
					countedText = declaredFunction.Body
				}
			}
			tokenCount, countError := tokenCounter.CountString(countedText)
			if countError != nil {
				fmt.Fprintf(os.Stderr, warningTokenCountFormat, node.Info.FilePath, countError)
			} else {
				node.Tokens = tokenCount
			}
		}
	}
	for _, childNode := range node.Children {
		annotateTokenCounts(childNode, tokenCounter, symbolCache, projectRoot)
	}
}
