package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/scan-io-git/scanio-playground/pkg/shared/files"
)

const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// GenericResult is the record of one unit of work launched by a command.
type GenericResult struct {
	Args    interface{} `json:"args"`
	Result  interface{} `json:"result"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

// GenericLaunchesResult aggregates the records of a command that launched several units of work.
type GenericLaunchesResult struct {
	Launches []GenericResult `json:"launches"`
}

// Versions holds build information of the application.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// ForEveryStringWithBoundedGoroutines calls f for every value with at most limit calls running at once.
func ForEveryStringWithBoundedGoroutines(limit int, values []interface{}, f func(i int, value interface{})) {
	if limit <= 0 {
		limit = 1
	}
	guard := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, value := range values {
		guard <- struct{}{} // would block if guard channel is already filled
		wg.Add(1)
		go func(i int, value interface{}) {
			defer wg.Done()
			defer func() { <-guard }()
			f(i, value)
		}(i, value)
	}
	wg.Wait()
}

// HasFlags reports whether any flag of the set was given on the command line.
func HasFlags(flags *pflag.FlagSet) bool {
	changed := false
	flags.Visit(func(*pflag.Flag) {
		changed = true
	})
	return changed
}

// WriteGenericResult writes result as indented JSON to outputPath, or to stdout when outputPath is empty.
func WriteGenericResult(logger hclog.Logger, result interface{}, outputPath string, stdout io.Writer) error {
	data, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')
	return WriteOutput(logger, data, outputPath, stdout)
}

// WriteOutput writes data to outputPath, or to stdout when outputPath is empty.
func WriteOutput(logger hclog.Logger, data []byte, outputPath string, stdout io.Writer) error {
	if outputPath == "" {
		_, err := stdout.Write(data)
		return err
	}

	path, err := files.ExpandPath(outputPath)
	if err != nil {
		return fmt.Errorf("failed to resolve output path %q: %w", outputPath, err)
	}
	if err := files.CreateFolderIfNotExists(filepath.Dir(path)); err != nil {
		return err
	}
	if err := files.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file %q: %w", path, err)
	}
	logger.Info("results saved to file", "path", path)
	return nil
}
