package naming

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
)

// ImageDir is the subdirectory images are stored in, relative to the output root.
const ImageDir = "images"

// registry assigns unique names keyed by URL.
type registry struct {
	mu     sync.Mutex
	byURL  map[string]string
	byName map[string]string
}

func newRegistry() *registry {
	return &registry{
		byURL:  make(map[string]string),
		byName: make(map[string]string),
	}
}

// claim records a unique variant of base for key and returns it.
// The caller must hold r.mu and must have checked byURL first.
func (r *registry) claim(key, base string) string {
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := base
	for i := 1; ; i++ {
		if _, taken := r.byName[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}

	r.byURL[key] = name
	r.byName[name] = key
	return name
}

func (r *registry) lookup(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name, ok := r.byURL[key]
	return name, ok
}

// Allocator assigns Markdown file names to page URLs.
// The mapping is a bijection: each URL has one name and each name one URL.
type Allocator struct {
	reg *registry
}

// NewAllocator creates an Allocator. Reserved names are never handed out.
func NewAllocator(reserved ...string) *Allocator {
	a := &Allocator{reg: newRegistry()}
	for _, name := range reserved {
		a.reg.byName[name] = ""
	}
	return a
}

// Allocate returns the file name for pageURL, assigning one on first use.
func (a *Allocator) Allocate(pageURL string) (string, error) {
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()

	if name, ok := a.reg.byURL[pageURL]; ok {
		return name, nil
	}

	base, err := Sanitize(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to derive file name for %s: %w", pageURL, err)
	}
	return a.reg.claim(pageURL, base), nil
}

// Lookup returns the file name already assigned to pageURL.
func (a *Allocator) Lookup(pageURL string) (string, bool) {
	return a.reg.lookup(pageURL)
}

// Len returns the number of URLs with an assigned name.
func (a *Allocator) Len() int {
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()
	return len(a.reg.byURL)
}

// ImageAllocator assigns local paths under ImageDir to image URLs.
type ImageAllocator struct {
	reg *registry
}

// NewImageAllocator creates an empty ImageAllocator.
func NewImageAllocator() *ImageAllocator {
	return &ImageAllocator{reg: newRegistry()}
}

// Allocate returns the local path (for example "images/logo.png") for
// imageURL, assigning one on first use. The name comes from the last path
// segment with the query ignored; URLs without one, including paths that
// end in '/', are named image_<n>.
// Paths always use '/' so they can be used as Markdown link targets.
func (a *ImageAllocator) Allocate(imageURL string) (string, error) {
	a.reg.mu.Lock()
	defer a.reg.mu.Unlock()

	if p, ok := a.reg.byURL[imageURL]; ok {
		return ImageDir + "/" + p, nil
	}

	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to derive image name for %s: %w", imageURL, err)
	}

	base := ""
	if u.Path != "" && !strings.HasSuffix(u.Path, "/") {
		segment := path.Base(u.Path)
		base = shorten(safeName(segment))
	}
	if strings.Trim(base, "_.") == "" {
		base = fmt.Sprintf("image_%d", len(a.reg.byURL)+1)
	}

	return ImageDir + "/" + a.reg.claim(imageURL, base), nil
}

// Lookup returns the local path already assigned to imageURL.
func (a *ImageAllocator) Lookup(imageURL string) (string, bool) {
	p, ok := a.reg.lookup(imageURL)
	if !ok {
		return "", false
	}
	return ImageDir + "/" + p, true
}
