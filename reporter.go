package cssync

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WriteStatus renders the index summary shown by the scan command and the
// serve banner.
func WriteStatus(w io.Writer, status Status, useColors bool) {
	fmt.Fprintf(w, "%s %s\n",
		RenderStyle(StyleGreen, "Watching", useColors),
		RenderStyle(StyleCyan, status.RootPath, useColors))
	fmt.Fprintf(w, "  Stylesheets indexed: %d\n", status.FilesIndexed)

	if len(status.DomainMappings) == 0 {
		return
	}
	domains := make([]string, 0, len(status.DomainMappings))
	for domain := range status.DomainMappings {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	fmt.Fprintln(w, "  Domain mappings:")
	for _, domain := range domains {
		fmt.Fprintf(w, "    %s -> %s\n", domain, status.DomainMappings[domain])
	}
}

// WritePatchResult renders one apply outcome as a single activity line.
func WritePatchResult(w io.Writer, result PatchResult, useColors bool) {
	if !result.Success {
		fmt.Fprintf(w, "%s %s\n",
			RenderStyle(StyleRed, "✗", useColors), result.Error)
		return
	}
	verb := "updated"
	if result.Created {
		verb = "created"
	}
	fmt.Fprintf(w, "%s %s %s %s (%s)\n",
		RenderStyle(StyleGreen, "✓", useColors),
		verb,
		RenderStyle(StyleGray, result.Selector, useColors),
		RenderStyle(StyleCyan, result.File, useColors),
		strings.Join(result.ChangedProperties, ", "))
}

// WriteIndexedFiles lists the indexed stylesheets with their rule counts,
// used by the scan command in verbose mode.
func WriteIndexedFiles(w io.Writer, files []*StylesheetFile, useColors bool) {
	for _, file := range files {
		fmt.Fprintf(w, "  %s  %d rules\n",
			RenderStyle(StyleCyan, file.Path, useColors), len(file.Rules))
	}
}
