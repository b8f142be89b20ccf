// Package main demonstrates basic usage of the profstalker library.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/codeGROOVE-dev/profstalker/pkg/profstalker"
)

func main() {
	school := flag.String("school", "", "school name to scope the search")
	flag.Parse()

	if len(flag.Args()) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-school <name>] <instructor name>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s -school \"University of Washington\" \"Stuart Reges\"\n", os.Args[0])
		os.Exit(1)
	}

	ctx := context.Background()

	stalker, err := profstalker.New(ctx)
	if err != nil {
		log.Fatalf("Failed to create profstalker client: %v", err)
	}

	name := flag.Args()[0]
	result, err := stalker.Resolve(ctx, profstalker.Request{Name: name, School: *school})
	if err != nil {
		log.Fatalf("Failed to resolve instructor: %v", err)
	}

	fmt.Printf("School: %s\n", result.SchoolLabel)
	for _, m := range result.Matches {
		fmt.Printf("\n%s %s (%s)\n", m.FirstName, m.LastName, m.Department)
		fmt.Printf("  Score:   %d\n", m.Score)
		fmt.Printf("  Rating:  %.1f (%d ratings)\n", m.AvgRating, m.NumRatings)
		fmt.Printf("  URL:     %s\n", m.URL)
	}
}
