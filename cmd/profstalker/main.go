// Command profstalker resolves an instructor name to ratings-directory
// records, using hints scraped from the course page when one is given.
//
// Usage:
//
//	profstalker -school "University of Washington" "Dr. Stuart Reges"
//	profstalker -url https://canvas.uw.edu/courses/12345 "Reges"
//	profstalker -html syllabus.html -dept cse "Liz Johnson"
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/profstalker/pkg/httpcache"
	"github.com/codeGROOVE-dev/profstalker/pkg/profstalker"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	verbose := flag.Bool("v", false, "verbose logging (same as -debug)")
	pageURL := flag.String("url", "", "course page URL; fetched for school/department/course hints")
	htmlPath := flag.String("html", "", "local HTML file to scan instead of fetching -url")
	school := flag.String("school", "", "school name override; skips page-signal detection")
	dept := flag.String("dept", "", "department hint (abbreviations like cse are expanded)")
	course := flag.String("course", "", "course hint, e.g. CSE 142")
	noCache := flag.Bool("no-cache", false, "disable HTTP caching (enabled by default with 7-day TTL)")
	cacheTTL := flag.Duration("cache-ttl", 7*24*time.Hour, "cache time-to-live")
	timeout := flag.Duration("timeout", 30*time.Second, "overall resolution timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: profstalker [options] <name>")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "\nThe name may span several arguments: profstalker Stuart Reges")
		fmt.Fprintln(os.Stderr, "Hints sharpen matching but nothing is required beyond the name;")
		fmt.Fprintln(os.Stderr, "without a school the directory is searched globally.")
		os.Exit(1)
	}
	name := strings.Join(flag.Args(), " ")

	logLevel := slog.LevelInfo
	if *debug || *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	var httpCache *httpcache.Cache
	if !*noCache {
		var err error
		httpCache, err = httpcache.New(*cacheTTL)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := httpCache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
			}()
			logger.Debug("HTTP cache initialized", "ttl", cacheTTL.String())
		}
	}

	opts := []profstalker.Option{profstalker.WithLogger(logger)}
	if httpCache != nil {
		opts = append(opts, profstalker.WithHTTPCache(httpCache))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	stalker, err := profstalker.New(ctx, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1) //nolint:gocritic // exitAfterDefer is acceptable in main
	}

	req := profstalker.Request{
		Name:       name,
		PageURL:    *pageURL,
		School:     *school,
		Department: *dept,
		Course:     *course,
	}
	switch {
	case *htmlPath != "":
		page, err := os.ReadFile(*htmlPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		req.PageHTML = string(page)
	case *pageURL != "":
		page, err := stalker.FetchPage(ctx, *pageURL)
		if err != nil {
			// The page only supplies hints; resolution can still run.
			logger.Warn("could not fetch page, resolving without hints", "url", *pageURL, "error", err)
		} else {
			req.PageHTML = page
		}
	}

	result, err := stalker.Resolve(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := outputJSON(result); err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		os.Exit(1)
	}
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
