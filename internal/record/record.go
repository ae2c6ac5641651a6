// Package record implements the record runner: §4.9's component/merge-cut
// register assembly followed by driving every frame of a reel (and any
// component reels ahead of it) through the take runner in sequence,
// persisting the working cut register on completion or on the first
// failure. Grounded on the original CLI's run_record, including its
// component parsing ("path&name"), destructive-merge ordering, and
// write_cut/take_output conventions.
package record

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/reel"
	"reelrun/internal/register"
	"reelrun/internal/rerrors"
	"reelrun/internal/take"
	"reelrun/internal/transport"
)

// Options configures one record run.
type Options struct {
	Base          params.BaseParams
	CutPath       string   // the run's own cut file
	ReelDir       string
	ReelName      string
	Components    []string // "path&name" component reel references, applied before ReelName's own reel
	MergeCutPaths []string // additional cut files merged in last, winning over everything else
	TakeOutDir    string   // if non-empty, every successful take is written here as "<stem>.tk.json"
	CutOutPath    string   // if non-empty, the final register is persisted here, hidden-masked
	HasRange      bool     // whether RangeStart/RangeEnd restrict the run's own reel
	RangeStart    int
	RangeEnd      int
}

// Run executes a full record pass and returns the working register as it
// stood when the run finished (successfully or not).
func Run(ctx context.Context, senders transport.Registry, opts Options) (*register.Register, error) {
	cutBytes, err := os.ReadFile(opts.CutPath)
	if err != nil {
		return nil, rerrors.Wrap(rerrors.CutParse, "unable to read cut file", opts.CutPath, err)
	}
	reg, err := register.FromJSON(cutBytes)
	if err != nil {
		return nil, err
	}

	var reels []*reel.Reel
	compReg := register.New()
	for _, comp := range opts.Components {
		compReel, compCut, err := loadComponent(comp)
		if err != nil {
			return nil, err
		}
		compReg.Merge(compCut)
		reels = append(reels, compReel)
	}
	compReg.Merge(reg)
	reg = compReg

	ownReel, err := reel.New(opts.ReelDir, opts.ReelName)
	if err != nil {
		return nil, err
	}
	if opts.HasRange {
		ownReel = ownReel.FilterRange(opts.RangeStart, opts.RangeEnd)
	}
	reels = append(reels, ownReel)

	for _, p := range opts.MergeCutPaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, rerrors.Wrap(rerrors.CutParse, "unable to read merge-cut file", p, err)
		}
		extra, err := register.FromJSON(data)
		if err != nil {
			return nil, err
		}
		reg.Merge(extra)
	}

	for _, rl := range reels {
		for _, mf := range rl.Frames {
			if err := runOne(ctx, senders, opts, reg, mf); err != nil {
				_ = writeCut(opts.CutOutPath, opts.ReelName, reg, true)
				return reg, err
			}
		}
	}

	if err := writeCut(opts.CutOutPath, opts.ReelName, reg, false); err != nil {
		return reg, err
	}
	return reg, nil
}

func runOne(ctx context.Context, senders transport.Registry, opts Options, reg *register.Register, mf reel.MetaFrame) error {
	data, err := os.ReadFile(mf.Path)
	if err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "unable to read frame file", mf.Path, err)
	}
	fr, err := frame.Parse(data)
	if err != nil {
		return err
	}

	result, err := take.Run(ctx, senders, opts.Base, reg, fr)
	if err != nil {
		// Preserve the take's own error kind (Transport, FrameParse,
		// ValueMismatch, ...) instead of relabeling everything as a value
		// mismatch, so callers can still inspect the variant per §7.
		kind := rerrors.ValueMismatch
		var rerr *rerrors.Error
		if errors.As(err, &rerr) {
			kind = rerr.Kind
		}
		return rerrors.Wrap(kind, "take failed", mf.Path, err)
	}

	if opts.TakeOutDir != "" {
		out, err := result.Artifact()
		if err != nil {
			return err
		}
		if err := os.WriteFile(takeOutputPath(opts.TakeOutDir, mf.Path), out, 0o644); err != nil {
			return rerrors.Wrap(rerrors.FrameParse, "unable to write take artifact", mf.Path, err)
		}
	}
	return nil
}

// loadComponent parses a "path&name" component reference, loads its reel,
// and loads its default cut file ("<path>/.<name>.cut.json").
func loadComponent(component string) (*reel.Reel, *register.Register, error) {
	parts := strings.SplitN(component, "&", 2)
	if len(parts) != 2 {
		return nil, nil, rerrors.New(rerrors.ReelParse, "component must be \"path&name\"", component)
	}
	path, name := parts[0], parts[1]

	rl, err := reel.New(path, name)
	if err != nil {
		return nil, nil, rerrors.Wrap(rerrors.ReelParse, "invalid component reel", component, err)
	}

	cutPath := filepath.Join(path, fmt.Sprintf(".%s.cut.json", name))
	data, err := os.ReadFile(cutPath)
	if err != nil {
		return nil, nil, rerrors.Wrap(rerrors.CutParse, "component cut must be a valid file", cutPath, err)
	}
	reg, err := register.FromJSON(data)
	if err != nil {
		return nil, nil, err
	}
	return rl, reg, nil
}

// takeOutputPath mirrors take_output: the frame's filename stem (dropping
// both ".json" and the trailing ".fr") joined with dir as "<stem>.tk.json".
func takeOutputPath(dir, framePath string) string {
	base := filepath.Base(framePath)
	stem := strings.TrimSuffix(base, ".json")
	stem = strings.TrimSuffix(stem, ".fr")
	return filepath.Join(dir, stem+".tk.json")
}

// writeCut persists reg to cutOut, hidden-masked. A directory target gets
// the conventional ".<reelName>.cut.json" name. failed marks an aborted run
// at the call site; it does not change what is written or where.
func writeCut(cutOut, reelName string, reg *register.Register, failed bool) error {
	if cutOut == "" {
		return nil
	}
	hidden, err := reg.MarshalHidden()
	if err != nil {
		return err
	}

	target := cutOut
	if info, statErr := os.Stat(cutOut); statErr == nil && info.IsDir() {
		target = filepath.Join(cutOut, fmt.Sprintf(".%s.cut.json", reelName))
	}
	_ = failed // only distinguishes the caller's log framing, not the write itself
	return os.WriteFile(target, hidden, 0o644)
}
