package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wippyai/vtable-runtime/sample"
)

func TestProbesOnSim(t *testing.T) {
	s, err := openSession("sim", zap.NewNop())
	require.NoError(t, err)

	for _, p := range probes {
		t.Run(p.name, func(t *testing.T) {
			out, err := p.run(s, p.defaults())
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}

	assert.Equal(t, 0, s.f.Live())
	assert.Equal(t, 0, s.h.Live())
	require.NoError(t, s.Close())
}

func TestProbeOutputs(t *testing.T) {
	s, err := openSession("sim", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	out, err := probeValue(s, []string{"42", "answer"})
	require.NoError(t, err)
	assert.Equal(t, `GetValue=42 GetName="answer" refs 1 -> 2 -> 1`, out)

	out, err = probeEnum(s, []string{"4"})
	require.NoError(t, err)
	assert.Equal(t, "slice=[0 1 2 3] iterated=[0 1 2 3]", out)

	out, err = probeEvents(s, []string{"hi"})
	require.NoError(t, err)
	assert.Equal(t, `events=["vtprobe: hi" "exit 0"] continues=3`, out)

	out, err = probeQuery(s, []string{sample.IIDValue.String()})
	require.NoError(t, err)
	assert.Contains(t, out, "supported")
	assert.NotContains(t, out, "not")

	out, err = probeQuery(s, []string{sample.IIDController.String()})
	require.NoError(t, err)
	assert.Contains(t, out, "not supported")

	_, err = probeValue(s, []string{"x", ""})
	assert.Error(t, err)
}

func TestUnknownPlatformAndProbe(t *testing.T) {
	_, err := openSession("vax", zap.NewNop())
	assert.Error(t, err)

	s, err := openSession("sim", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	assert.Error(t, run(s, "nope", "", 1))
}
