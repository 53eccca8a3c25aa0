package gpuframe

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/gpucore"
)

type fakeAdapter struct{ info gpucore.AdapterInfo }

func (a fakeAdapter) Info() gpucore.AdapterInfo { return a.info }

func (a fakeAdapter) Open() (gpucore.Device, gpucore.Queue, error) {
	return nil, nil, errors.New("not openable")
}

func adapters(infos ...gpucore.AdapterInfo) []gpucore.Adapter {
	out := make([]gpucore.Adapter, len(infos))
	for i, info := range infos {
		out[i] = fakeAdapter{info}
	}
	return out
}

func TestSelectAdapter(t *testing.T) {
	discrete := gpucore.AdapterInfo{Name: "discrete", DeviceType: gputypes.DeviceTypeDiscreteGPU, VideoMemory: 4 << 30}
	bigDiscrete := gpucore.AdapterInfo{Name: "big", DeviceType: gputypes.DeviceTypeDiscreteGPU, VideoMemory: 8 << 30}
	integrated := gpucore.AdapterInfo{Name: "integrated", DeviceType: gputypes.DeviceTypeIntegratedGPU, VideoMemory: 1 << 30}
	warp := gpucore.AdapterInfo{Name: "warp", DeviceType: gputypes.DeviceTypeCPU, Software: true}
	virtual := gpucore.AdapterInfo{Name: "virtual", DeviceType: gputypes.DeviceTypeVirtualGPU}

	tests := []struct {
		name     string
		adapters []gpucore.Adapter
		pref     AdapterPreference
		software bool
		want     string
		wantErr  error
	}{
		{"discrete first", adapters(integrated, discrete), PreferDiscrete, false, "discrete", nil},
		{"more memory wins", adapters(discrete, bigDiscrete), PreferDiscrete, false, "big", nil},
		{"integrated preferred", adapters(bigDiscrete, integrated), PreferIntegrated, false, "integrated", nil},
		{"virtual over nothing", adapters(warp, virtual), PreferDiscrete, false, "virtual", nil},
		{"software skipped", adapters(warp), PreferDiscrete, false, "", ErrNoAdapter},
		{"software allowed but last", adapters(warp, integrated), PreferDiscrete, true, "integrated", nil},
		{"software preferred", adapters(discrete, warp), PreferSoftware, false, "warp", nil},
		{"enumeration order breaks ties", adapters(discrete, gpucore.AdapterInfo{Name: "twin", DeviceType: gputypes.DeviceTypeDiscreteGPU, VideoMemory: 4 << 30}), PreferDiscrete, false, "discrete", nil},
		{"none", nil, PreferDiscrete, false, "", ErrNoAdapter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectAdapter(tt.adapters, tt.pref, tt.software, newNopLogger())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got.Info().Name != tt.want {
				t.Errorf("selected %q, want %q", got.Info().Name, tt.want)
			}
		})
	}
}

func TestAdapterPreferenceString(t *testing.T) {
	tests := []struct {
		p    AdapterPreference
		want string
	}{
		{PreferDiscrete, "discrete"},
		{PreferIntegrated, "integrated"},
		{PreferSoftware, "software"},
		{AdapterPreference(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestOpenErrorIsReturned(t *testing.T) {
	_, err := New(nil, WithDriver(fakeDriver{adapters(gpucore.AdapterInfo{Name: "broken", DeviceType: gputypes.DeviceTypeDiscreteGPU})}))
	if err == nil {
		t.Fatal("New() with an unopenable adapter succeeded")
	}
}

type fakeDriver struct{ list []gpucore.Adapter }

func (fakeDriver) Name() string { return "fake" }

func (d fakeDriver) Adapters() ([]gpucore.Adapter, error) { return d.list, nil }
