// Package vreel implements the virtual reel: an explicit, JSON-declared
// alternative to filesystem enumeration that lists frame paths directly
// (optionally renaming them) and names its own cut source.
package vreel

import (
	"encoding/json"
	"path/filepath"
	"sort"

	"reelrun/internal/rerrors"
)

// Frame is one entry in a virtual reel's frame list. Key is the display
// name that overrides the frame's own parsed command name; it is empty for
// the plain ordered-list variant, where the frame keeps its own name and
// sequence comes from list position instead.
type Frame struct {
	Key  string
	Path string
}

// CutKind distinguishes the three shapes a virtual reel's "cut" field may
// take.
type CutKind int

const (
	CutRegister   CutKind = iota // inline register object
	CutPath                      // a single cut file path
	CutMergePaths                // a list of cut file paths, merged destructively in order
)

// Cut is the virtual reel's declared cut source.
type Cut struct {
	Kind     CutKind
	Register json.RawMessage // inline register document, when Kind == CutRegister
	Path     string          // when Kind == CutPath
	Paths    []string        // when Kind == CutMergePaths
}

// VirtualReel is a virtual reel document.
type VirtualReel struct {
	Name   string
	Path   string // optional base directory prepended to every relative path
	Frames []Frame
	Cut    Cut
}

type wireDoc struct {
	Name   string          `json:"name"`
	Path   string          `json:"path,omitempty"`
	Frames json.RawMessage `json:"frames"`
	Cut    json.RawMessage `json:"cut"`
}

// Parse decodes a virtual reel document.
func Parse(data []byte) (*VirtualReel, error) {
	var wire wireDoc
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, rerrors.Wrap(rerrors.ReelParse, "invalid virtual reel document", "", err)
	}

	vr := &VirtualReel{Name: wire.Name, Path: wire.Path}

	frames, err := parseFrames(wire.Frames)
	if err != nil {
		return nil, err
	}
	vr.Frames = frames

	cut, err := parseCut(wire.Cut)
	if err != nil {
		return nil, err
	}
	vr.Cut = cut

	if vr.Path != "" {
		vr.JoinPath()
	}
	return vr, nil
}

func parseFrames(raw json.RawMessage) ([]Frame, error) {
	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		frames := make([]Frame, len(asList))
		for i, p := range asList {
			frames[i] = Frame{Path: p}
		}
		return frames, nil
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		keys := make([]string, 0, len(asMap))
		for k := range asMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		frames := make([]Frame, len(keys))
		for i, k := range keys {
			frames[i] = Frame{Key: k, Path: asMap[k]}
		}
		return frames, nil
	}

	return nil, rerrors.New(rerrors.ReelParse, "virtual reel frames must be an ordered list or a name->path map", string(raw))
}

func parseCut(raw json.RawMessage) (Cut, error) {
	var asPaths []string
	if err := json.Unmarshal(raw, &asPaths); err == nil {
		return Cut{Kind: CutMergePaths, Paths: asPaths}, nil
	}

	var asPath string
	if err := json.Unmarshal(raw, &asPath); err == nil {
		return Cut{Kind: CutPath, Path: asPath}, nil
	}

	var asObj map[string]any
	if err := json.Unmarshal(raw, &asObj); err == nil {
		return Cut{Kind: CutRegister, Register: raw}, nil
	}

	return Cut{}, rerrors.New(rerrors.ReelParse, "virtual reel cut must be a register object, a path, or a list of paths", string(raw))
}

// JoinPath prepends Path to every relative frame path and cut path.
func (vr *VirtualReel) JoinPath() {
	if vr.Path == "" {
		return
	}
	join := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(vr.Path, p)
	}
	for i := range vr.Frames {
		vr.Frames[i].Path = join(vr.Frames[i].Path)
	}
	switch vr.Cut.Kind {
	case CutPath:
		vr.Cut.Path = join(vr.Cut.Path)
	case CutMergePaths:
		for i, p := range vr.Cut.Paths {
			vr.Cut.Paths[i] = join(p)
		}
	case CutRegister:
		// nothing to join: the register is inline
	}
}
