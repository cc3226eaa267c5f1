package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"scope-crawler/pkg/stats"
	"scope-crawler/pkg/utils"
)

// DefaultTopWords is how many histogram entries the report lists
const DefaultTopWords = 50

// Write renders the crawl summary as the plain-text report.
// The "longest page" section names the subdomain with the most visits and
// reports that visit count, not the tracked word-count maximum.
func Write(w io.Writer, s stats.Summary, topN int) error {
	if topN <= 0 {
		topN = DefaultTopWords
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Number of unique pages encountered: %d\n\n", s.UniquePages)

	fmt.Fprintln(bw, "Page with the most valid out links:")
	if s.MostOutlinks.Count > 0 {
		fmt.Fprintf(bw, "%s: %d out links\n\n", s.MostOutlinks.Key, s.MostOutlinks.Count)
	} else {
		fmt.Fprint(bw, "none\n\n")
	}

	fmt.Fprintln(bw, "Subdomains visited and their URL counts:")
	for _, sub := range s.Subdomains {
		fmt.Fprintf(bw, "%s: %d\n", sub.Key, sub.Count)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Longest page in terms of number of words:")
	if len(s.Subdomains) > 0 {
		top := s.Subdomains[0]
		fmt.Fprintf(bw, "URL: %s with %d words\n\n", top.Key, top.Count)
	} else {
		fmt.Fprint(bw, "URL: none with 0 words\n\n")
	}

	fmt.Fprintf(bw, "%d most common words (excluding stop words) and their frequency:\n", topN)
	for _, word := range s.TopWords(topN) {
		fmt.Fprintf(bw, "%s: %d\n", word.Key, word.Count)
	}
	fmt.Fprint(bw, "\n\n")

	fmt.Fprintln(bw, "List of downloaded URLs:")
	for _, u := range s.Visited {
		fmt.Fprintln(bw, u)
	}

	fmt.Fprintln(bw, "\nIdentified traps:")
	for _, t := range s.Traps {
		fmt.Fprintln(bw, t)
	}
	fmt.Fprintln(bw)

	return bw.Flush()
}

// WriteFile writes the report to path, creating parent directories as needed
func WriteFile(path string, s stats.Summary, topN int) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: creating report directory '%s': %w", utils.ErrFilesystem, dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating report file '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := Write(f, s, topN); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing report '%s': %w", utils.ErrFilesystem, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: closing report '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}
