package gpuframe

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
)

// resolveDriver returns the configured driver, the named registry backend,
// or the default one.
func resolveDriver(c *config) (backend.Driver, error) {
	if c.driver != nil {
		return c.driver, nil
	}
	if c.backend != "" {
		return backend.Lookup(c.backend)
	}
	drv := backend.Default()
	if drv == nil {
		return nil, backend.ErrBackendNotAvailable
	}
	return drv, nil
}

// typeRank orders device types for a preference. Higher is better.
func typeRank(t gputypes.DeviceType, pref AdapterPreference) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		if pref == PreferIntegrated {
			return 3
		}
		return 4
	case gputypes.DeviceTypeIntegratedGPU:
		if pref == PreferIntegrated {
			return 4
		}
		return 3
	case gputypes.DeviceTypeVirtualGPU:
		return 2
	case gputypes.DeviceTypeCPU:
		return 0
	default:
		return 1
	}
}

// selectAdapter picks the best adapter. Software adapters are skipped
// unless allowed; among the rest the preferred device type wins, then the
// larger video memory, then enumeration order.
func selectAdapter(adapters []gpucore.Adapter, pref AdapterPreference, allowSoftware bool, log *slog.Logger) (gpucore.Adapter, error) {
	type candidate struct {
		adapter gpucore.Adapter
		info    gpucore.AdapterInfo
		index   int
	}
	allowSoftware = allowSoftware || pref == PreferSoftware

	var cands []candidate
	for i, a := range adapters {
		info := a.Info()
		if info.Software && !allowSoftware {
			log.Debug("gpuframe: skipping software adapter", "adapter", info.Name)
			continue
		}
		cands = append(cands, candidate{adapter: a, info: info, index: i})
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: %d adapters enumerated", ErrNoAdapter, len(adapters))
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i].info, cands[j].info
		if pref == PreferSoftware && a.Software != b.Software {
			return a.Software
		}
		if ra, rb := typeRank(a.DeviceType, pref), typeRank(b.DeviceType, pref); ra != rb {
			return ra > rb
		}
		if a.VideoMemory != b.VideoMemory {
			return a.VideoMemory > b.VideoMemory
		}
		return cands[i].index < cands[j].index
	})
	best := cands[0]
	log.Info("gpuframe: adapter selected",
		"adapter", best.info.Name,
		"type", best.info.DeviceType.String(),
		"memory", best.info.VideoMemory,
		"software", best.info.Software)
	return best.adapter, nil
}
