package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballast-os/ballast/blockdev"
	"github.com/ballast-os/ballast/errdefs"
	"github.com/ballast-os/ballast/manifest"
)

func vgTopped(pv, vg string) blockdev.Path {
	return blockdev.Path{
		{Device: pv, Type: blockdev.TypeUnknown},
		{Device: pv, Type: blockdev.TypePV},
		{Device: "/dev/" + vg, Type: blockdev.TypeVG},
	}
}

// Two LVs on a VG with two PVs fan out into lvs x pvs resolved paths
// sharing prefixes.
func TestCollectValidLVFanOut(t *testing.T) {
	valids := blockdev.Paths{
		vgTopped("/dev/fda2", "archvg"),
		vgTopped("/dev/fdb2", "archvg"),
	}

	require.NoError(t, collectValidLV(manifest.Lv{Vg: "archvg", Name: "rootlv"}, &valids))
	require.NoError(t, collectValidLV(manifest.Lv{Vg: "archvg", Name: "swaplv"}, &valids))

	// 2 vg-topped originals + 2x2 lv clones before pruning.
	require.Len(t, valids, 6)

	pruneExtendedVgs(&valids)
	require.Len(t, valids, 4)

	counts := map[string]int{}
	for _, path := range valids {
		top, _ := path.Top()
		assert.Equal(t, blockdev.TypeLV, top.Type)
		counts[top.Device]++
		assert.True(t, path.Stacked())
	}
	assert.Equal(t, map[string]int{
		"/dev/archvg/rootlv": 2,
		"/dev/archvg/swaplv": 2,
	}, counts)
}

func TestCollectValidLVErrors(t *testing.T) {
	t.Run("vg never resolved", func(t *testing.T) {
		valids := blockdev.Paths{}
		err := collectValidLV(manifest.Lv{Vg: "ghostvg", Name: "lv0"}, &valids)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
	})

	t.Run("duplicate lv", func(t *testing.T) {
		valids := blockdev.Paths{vgTopped("/dev/fda2", "archvg")}
		require.NoError(t, collectValidLV(manifest.Lv{Vg: "archvg", Name: "rootlv"}, &valids))

		err := collectValidLV(manifest.Lv{Vg: "archvg", Name: "rootlv"}, &valids)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate lv")
	})

	t.Run("vg device path topped by non-vg", func(t *testing.T) {
		valids := blockdev.Paths{
			{
				{Device: "/dev/archvg", Type: blockdev.TypeUnknown},
			},
		}
		err := collectValidLV(manifest.Lv{Vg: "archvg", Name: "rootlv"}, &valids)
		require.Error(t, err)
		assert.True(t, errdefs.IsBadManifest(err))
	})
}
