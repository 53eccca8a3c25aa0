package gpucore

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestResourceStateString(t *testing.T) {
	tests := []struct {
		s    ResourceState
		want string
	}{
		{StateCommon, "Common"},
		{StateRenderTarget, "RenderTarget"},
		{StatePresent, "Present"},
		{StateGenericRead, "GenericRead"},
		{ResourceState(99), "ResourceState(99)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	b := Barrier{Before: StateCopyDest, After: StateShaderResource}
	if b.String() != "CopyDest -> ShaderResource" {
		t.Errorf("Barrier.String() = %q", b.String())
	}
}

func TestHeapKind(t *testing.T) {
	tests := []struct {
		k       HeapKind
		name    string
		visible bool
	}{
		{HeapRTV, "rtv", false},
		{HeapDSV, "dsv", false},
		{HeapSampler, "sampler", true},
		{HeapSRV, "srv", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.k.String() != tt.name {
				t.Errorf("String() = %q", tt.k.String())
			}
			if tt.k.ShaderVisible() != tt.visible {
				t.Errorf("ShaderVisible() = %v", tt.k.ShaderVisible())
			}
		})
	}
}

func TestBytesPerPixel(t *testing.T) {
	tests := []struct {
		f    gputypes.TextureFormat
		want uint32
	}{
		{gputypes.TextureFormatR8Unorm, 1},
		{gputypes.TextureFormatRGBA8Unorm, 4},
		{gputypes.TextureFormatBGRA8UnormSrgb, 4},
		{gputypes.TextureFormatDepth24PlusStencil8, 4},
		{gputypes.TextureFormat(0), 0},
	}
	for _, tt := range tests {
		if got := BytesPerPixel(tt.f); got != tt.want {
			t.Errorf("BytesPerPixel(%v) = %d, want %d", tt.f, got, tt.want)
		}
	}
}

func TestPipelineKinds(t *testing.T) {
	if PipelineKindCount != 7 {
		t.Fatalf("PipelineKindCount = %d", PipelineKindCount)
	}
	noColor := map[PipelineKind]bool{PipelineFillStencil: true, PipelineStrokeClear: true}
	for k := PipelineKind(0); int(k) < PipelineKindCount; k++ {
		if k.String() == "unknown" {
			t.Errorf("kind %d has no name", k)
		}
		if k.WritesColor() == noColor[k] {
			t.Errorf("%s.WritesColor() = %v", k, k.WritesColor())
		}
	}
}

func TestFatalError(t *testing.T) {
	err := error(&FatalError{Op: "occupy srv", Err: ErrOutOfMemory})
	if !errors.Is(err, ErrOutOfMemory) {
		t.Error("FatalError does not unwrap")
	}
	if err.Error() != "gpucore: fatal: occupy srv: gpucore: out of memory" {
		t.Errorf("Error() = %q", err.Error())
	}
	var fe *FatalError
	if !errors.As(err, &fe) || fe.Op != "occupy srv" {
		t.Error("errors.As failed")
	}
	if (&FatalError{Op: "x"}).Error() != "gpucore: fatal: x" {
		t.Error("Error() without cause")
	}
}
