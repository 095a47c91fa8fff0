// Package repository writes the documentation mirror to disk.
//
// A Repository owns the output directory layout:
//
//	<output>/index.md            generated index
//	<output>/<page>.md           one file per crawled page
//	<output>/images/<image>      downloaded images
//
// It also owns the URL to file name mapping for pages and images, so every
// file name it hands out is unique within a run.
package repository
