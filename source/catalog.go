package source

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownClip is returned when opening a clip not in the catalog
var ErrUnknownClip = errors.New("unknown clip")

// Clip is a named bundled video
type Clip struct {
	Name string
	Path string
	Loop bool
}

// Catalog holds the bundled clips available for playback
type Catalog struct {
	clips map[string]Clip
}

// NewCatalog returns a catalog of the clips.  Clip names must be unique and
// non empty
func NewCatalog(clips []Clip) (*Catalog, error) {

	c := &Catalog{clips: make(map[string]Clip, len(clips))}

	for _, clip := range clips {
		if clip.Name == "" || clip.Path == "" {
			return nil, fmt.Errorf("clip needs a name and path, got %+v", clip)
		}

		if _, ok := c.clips[clip.Name]; ok {
			return nil, fmt.Errorf("duplicate clip name %q", clip.Name)
		}

		c.clips[clip.Name] = clip
	}

	return c, nil
}

// Names returns the clip names sorted
func (c *Catalog) Names() []string {

	names := make([]string, 0, len(c.clips))

	for n := range c.clips {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Lookup returns the named clip
func (c *Catalog) Lookup(name string) (Clip, error) {

	clip, ok := c.clips[name]

	if !ok {
		return Clip{}, fmt.Errorf("%w: %s", ErrUnknownClip, name)
	}

	return clip, nil
}

// Open starts playback of the named clip
func (c *Catalog) Open(name string) (*File, error) {

	clip, err := c.Lookup(name)

	if err != nil {
		return nil, err
	}

	return NewFile(clip.Path, FileOptions{Loop: clip.Loop})
}
