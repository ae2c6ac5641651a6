// Package reel enumerates the frame files that make up one reel, parses
// their filenames into MetaFrames, and sequences them.
package reel

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"reelrun/internal/rerrors"
)

// FrameType is the frame-type code embedded in a frame's filename.
type FrameType int

const (
	Success FrameType = iota
	Error
	PsError // post-success error
	Invalid
)

func frameTypeFromString(s string) FrameType {
	switch s {
	case "s":
		return Success
	case "e":
		return Error
	case "se":
		return PsError
	default:
		return Invalid
	}
}

// MetaFrame is the metadata a Reel derives from one frame's filename:
// "<reel_name>.<seq><type>.<command>.fr.json", e.g.
// "usr.01s.createuser.fr.json".
type MetaFrame struct {
	Path     string
	Name     string // command name
	ReelName string
	Sequence float64
	Type     FrameType

	// ID is a random UUID assigned by ParseMetaFrame, distinct even when
	// Path/Name repeat across runs against the same reel directory. It is
	// not written into take artifacts or logs.
	ID string
}

const frameSuffix = ".fr.json"

// ParseMetaFrame parses one frame file path into a MetaFrame.
func ParseMetaFrame(path string) (*MetaFrame, error) {
	base := filepath.Base(path)
	trimmed := strings.TrimSuffix(base, frameSuffix)
	if trimmed == base {
		return nil, rerrors.New(rerrors.ReelParse, "frame filename missing .fr.json suffix", base)
	}
	parts := strings.Split(trimmed, ".")
	if len(parts) != 3 {
		return nil, rerrors.New(rerrors.ReelParse, "frame filename must have exactly reel.seqtype.command components", base)
	}

	seq, frType, err := parseSequence(parts[1])
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ReelParse, "invalid sequence in frame filename", base, err)
	}
	if frType == Invalid {
		return nil, rerrors.New(rerrors.ReelParse, "invalid frame type code in filename", base)
	}

	return &MetaFrame{
		Path:     path,
		ReelName: parts[0],
		Name:     parts[2],
		Sequence: seq,
		Type:     frType,
		ID:       uuid.New().String(),
	}, nil
}

// parseSequence decodes the "<seq><type>" token: digits and underscores
// (underscores decode to a decimal point) form the sequence number,
// letters form the frame-type code.
func parseSequence(seq string) (float64, FrameType, error) {
	var numBuf strings.Builder
	var typeBuf strings.Builder
	for _, ch := range seq {
		switch {
		case ch >= '0' && ch <= '9':
			numBuf.WriteRune(ch)
		case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
			typeBuf.WriteRune(ch)
		case ch == '_':
			numBuf.WriteByte('.')
		default:
			return 0, Invalid, rerrors.New(rerrors.ReelParse, "invalid sequence character", string(ch))
		}
	}
	n, err := strconv.ParseFloat(numBuf.String(), 64)
	if err != nil {
		return 0, Invalid, rerrors.Wrap(rerrors.ReelParse, "invalid sequence number", numBuf.String(), err)
	}
	return n, frameTypeFromString(typeBuf.String()), nil
}

// Reel is an ordered sequence of MetaFrames sharing a reel name.
type Reel struct {
	Frames []MetaFrame
}

// New enumerates "<dir>/<reelName>.*.*.fr.json", parses every match into a
// MetaFrame, sorts ascending by filename (equivalently, by sequence), and
// rejects duplicate sequence numbers.
func New(dir, reelName string) (*Reel, error) {
	pattern := filepath.Join(dir, reelName+".*.*"+frameSuffix)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ReelParse, "invalid reel glob pattern", pattern, err)
	}
	sort.Strings(matches)

	frames := make([]MetaFrame, 0, len(matches))
	seen := make(map[float64]string, len(matches))
	for _, m := range matches {
		mf, err := ParseMetaFrame(m)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[mf.Sequence]; dup {
			return nil, rerrors.New(rerrors.DuplicateSequence, "two frames share the same sequence number", prev+", "+mf.Path)
		}
		seen[mf.Sequence] = mf.Path
		frames = append(frames, *mf)
	}
	return &Reel{Frames: frames}, nil
}

// FilterRange keeps only frames whose integer sequence part falls within
// the inclusive [start, end] range.
func (r *Reel) FilterRange(start, end int) *Reel {
	filtered := make([]MetaFrame, 0, len(r.Frames))
	for _, f := range r.Frames {
		whole := int(math.Floor(f.Sequence))
		if whole >= start && whole <= end {
			filtered = append(filtered, f)
		}
	}
	return &Reel{Frames: filtered}
}
