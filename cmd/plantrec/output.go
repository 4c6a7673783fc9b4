package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/plantrec/plantrec/internal/catalog"
	"github.com/plantrec/plantrec/internal/cluster"
	"github.com/plantrec/plantrec/internal/dataset"
	"github.com/plantrec/plantrec/internal/normalize"
	"github.com/plantrec/plantrec/internal/recommend"
)

// NameMaxLen truncates species names in human output.
const NameMaxLen = 60

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeFor maps the error taxonomy onto exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, recommend.ErrEmptyCluster):
		return ExitNoMatches
	case errors.Is(err, cluster.ErrInsufficientData):
		return ExitInsufficientData
	case errors.Is(err, catalog.ErrSchemaMismatch),
		errors.Is(err, catalog.ErrInvalidFieldValue),
		errors.Is(err, normalize.ErrNoRows),
		errors.Is(err, dataset.ErrUnsupportedSource):
		return ExitDataError
	default:
		return ExitError
	}
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Rows   int    `json:"rows"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NoMatchesResponse is printed when the query's cluster has no other species.
type NoMatchesResponse struct {
	Recommendations []dataset.Identity `json:"recommendations"`
	Message         string             `json:"message"`
}

// printRecommendationsHuman prints a numbered list of species.
func printRecommendationsHuman(w io.Writer, res *recommend.Result) {
	if len(res.Recommendations) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return
	}
	for i, r := range res.Recommendations {
		fmt.Fprintf(w, "%2d. %-12s %s\n", i+1, r.ID, truncateString(r.Name, NameMaxLen))
	}
	fmt.Fprintf(w, "\nCluster %d (%d species), seed %d\n", res.Cluster, res.ClusterSize, res.Seed)
	if res.Silhouette != 0 {
		fmt.Fprintf(w, "Silhouette: %.3f\n", res.Silhouette)
	}
	if len(res.Degenerate) > 0 {
		fmt.Fprintf(w, "Constant columns ignored: %s\n", strings.Join(res.Degenerate, ", "))
	}
}

// printCatalogHuman prints one line per catalog field.
func printCatalogHuman(w io.Writer, cat *catalog.Catalog) {
	for _, f := range cat.Fields() {
		line := fmt.Sprintf("%-24s %-12s", f.Name, f.Kind)
		if len(f.Levels) > 0 {
			line += " " + strings.Join(f.Levels, " < ")
			if f.Kind == catalog.KindCategorical {
				line = strings.ReplaceAll(line, " < ", ", ")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
