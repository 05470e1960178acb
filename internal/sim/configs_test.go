package sim

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"armbridge/internal/modes"
	"armbridge/internal/pipeline"
)

func TestShippedScenario_FlyAndReach(t *testing.T) {
	script, err := LoadScenarioScript(filepath.Join("..", "..", "configs", "scenarios", "fly_and_reach.yaml"))
	require.NoError(t, err)
	scn, err := NewScenario(script)
	require.NoError(t, err)

	pc, err := pipeline.Preset(pipeline.PresetSingle)
	require.NoError(t, err)
	p, err := pipeline.New(pc)
	require.NoError(t, err)

	seen := map[modes.Mode]int{}
	maxOffset, maxForearm := 0.0, 0.0
	for elapsed := time.Duration(0); elapsed <= scn.Duration(); elapsed += 16 * time.Millisecond {
		out, err := p.Update(scn.StateAt(elapsed, false))
		require.NoError(t, err)
		seen[out.Mode]++
		if n := out.Offset.Norm(); n > maxOffset {
			maxOffset = n
		}
		if out.ForearmRoll > maxForearm {
			maxForearm = out.ForearmRoll
		}
	}

	assert.Positive(t, seen[modes.Fly])
	assert.Positive(t, seen[modes.Arm])
	// Roughly two seconds of flying at one step per frame.
	assert.Greater(t, maxOffset, 0.1)
	assert.InDelta(t, 60*math.Pi/180, maxForearm, 0.05)
}
