package record

import (
	"context"
	"os"

	"reelrun/internal/frame"
	"reelrun/internal/params"
	"reelrun/internal/register"
	"reelrun/internal/rerrors"
	"reelrun/internal/take"
	"reelrun/internal/transport"
	"reelrun/internal/vreel"
)

// VirtualOptions configures a record run driven by a virtual reel instead
// of filesystem enumeration.
type VirtualOptions struct {
	Base       params.BaseParams
	Reel       *vreel.VirtualReel
	TakeOutDir string
	CutOutPath string
}

// RunVirtual executes §4.7/§4.9 together: it builds the working register
// from the virtual reel's declared cut source, then drives each listed
// frame path through the take runner in list order, persisting the
// register the same way Run does.
func RunVirtual(ctx context.Context, senders transport.Registry, opts VirtualOptions) (*register.Register, error) {
	reg, err := loadVirtualCut(opts.Reel.Cut)
	if err != nil {
		return nil, err
	}

	for _, vf := range opts.Reel.Frames {
		if err := runVirtualFrame(ctx, senders, opts, reg, vf); err != nil {
			_ = writeCut(opts.CutOutPath, opts.Reel.Name, reg, true)
			return reg, err
		}
	}

	if err := writeCut(opts.CutOutPath, opts.Reel.Name, reg, false); err != nil {
		return reg, err
	}
	return reg, nil
}

func runVirtualFrame(ctx context.Context, senders transport.Registry, opts VirtualOptions, reg *register.Register, vf vreel.Frame) error {
	data, err := os.ReadFile(vf.Path)
	if err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "unable to read frame file", vf.Path, err)
	}
	fr, err := frame.Parse(data)
	if err != nil {
		return err
	}

	result, err := take.Run(ctx, senders, opts.Base, reg, fr)
	if err != nil {
		return rerrors.Wrap(rerrors.ValueMismatch, "take failed", vf.Path, err)
	}

	if opts.TakeOutDir == "" {
		return nil
	}
	out, err := result.Artifact()
	if err != nil {
		return err
	}
	stemSource := vf.Path
	if vf.Key != "" {
		stemSource = vf.Key + ".fr.json"
	}
	if err := os.WriteFile(takeOutputPath(opts.TakeOutDir, stemSource), out, 0o644); err != nil {
		return rerrors.Wrap(rerrors.FrameParse, "unable to write take artifact", vf.Path, err)
	}
	return nil
}

func loadVirtualCut(cut vreel.Cut) (*register.Register, error) {
	switch cut.Kind {
	case vreel.CutRegister:
		return register.FromJSON(cut.Register)
	case vreel.CutPath:
		data, err := os.ReadFile(cut.Path)
		if err != nil {
			return nil, rerrors.Wrap(rerrors.CutParse, "unable to read virtual reel cut file", cut.Path, err)
		}
		return register.FromJSON(data)
	case vreel.CutMergePaths:
		reg := register.New()
		for _, p := range cut.Paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, rerrors.Wrap(rerrors.CutParse, "unable to read virtual reel merge-cut file", p, err)
			}
			extra, err := register.FromJSON(data)
			if err != nil {
				return nil, err
			}
			reg.Merge(extra)
		}
		return reg, nil
	default:
		return nil, rerrors.New(rerrors.CutParse, "unknown virtual reel cut kind", "")
	}
}
