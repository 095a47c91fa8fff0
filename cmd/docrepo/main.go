// Package main provides the entry point for the docrepo CLI.
//
// docrepo crawls a documentation site breadth-first from a seed URL and
// writes every page it reaches as a Markdown file, with internal links
// rewritten to the local copies and images downloaded next to them.
//
// Usage:
//
//	docrepo https://docs.example.com/
//	docrepo https://docs.example.com/ -o mirror -d 2 --no-images
//
// See --help for all available options.
package main

func main() {
	Execute()
}
