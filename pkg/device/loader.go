package device

import (
	"context"

	"github.com/modelyard/modelyard/pkg/errors"
	"github.com/modelyard/modelyard/pkg/util/console"
)

// State of the loader for its most recent load request.
type State int

const (
	Unloaded State = iota
	Attempting
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Attempting:
		return "attempting"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Loader walks the tier list sequentially until one instantiation succeeds.
// Attempts never run in parallel: speculative loads would hold device memory
// across tiers.
type Loader struct {
	backend Backend
	tiers   []Tier

	state State
	tier  Tier
}

func NewLoader(backend Backend, tiers []Tier) *Loader {
	if len(tiers) == 0 {
		tiers = DefaultTiers()
	}
	return &Loader{
		backend: backend,
		tiers:   tiers,
	}
}

// Load attempts each tier in order. A tier failure is recoverable: the
// attempt's resources are released and the next tier is tried. Only when
// every tier has failed does the load surface a DeviceInitFailure.
func (l *Loader) Load(ctx context.Context, path string, opts Options) (Handle, error) {
	for _, tier := range l.tiers {
		if err := ctx.Err(); err != nil {
			l.state = Failed
			return nil, err
		}
		l.state = Attempting
		l.tier = tier

		handle, err := l.backend.Load(ctx, path, tier, opts)
		if err != nil {
			if handle != nil {
				_ = handle.Close()
			}
			console.Warnf("Loading %s on %s failed, falling back: %s", path, tier.Name, err)
			continue
		}

		l.state = Loaded
		console.Infof("Loaded %s on %s", path, tier.Name)
		return handle, nil
	}

	l.state = Failed
	return nil, errors.DeviceInitFailure(path)
}

// State returns the loader's state after the most recent Load.
func (l *Loader) State() State {
	return l.state
}

// Tier returns the tier of the most recent attempt.
func (l *Loader) Tier() Tier {
	return l.tier
}
