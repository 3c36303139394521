package qos

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Defaults(t *testing.T) {
	for name, s := range map[string]Set{
		"empty":          {},
		"participant":    DefaultParticipant(),
		"topic":          DefaultTopic(),
		"writer":         DefaultWriter(),
		"reader":         DefaultReader(),
		"sensor":         SensorData(),
		"transientLocal": TransientLocal(),
		"keepAll":        KeepAll(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, Validate(s))
		})
	}
}

func TestValidate_Inconsistent(t *testing.T) {
	tests := []struct {
		name   string
		set    Set
		policy PolicyKind
	}{
		{"keep last zero depth", NewSet(History{Kind: HistoryKeepLast, Depth: 0}), PolicyHistory},
		{"zero max samples", NewSet(ResourceLimits{MaxSamples: 0, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited}), PolicyResourceLimits},
		{"per instance above total", NewSet(ResourceLimits{MaxSamples: 2, MaxInstances: Unlimited, MaxSamplesPerInstance: 3}), PolicyResourceLimits},
		{"depth above per instance", NewSet(
			History{Kind: HistoryKeepLast, Depth: 5},
			ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: 2},
		), PolicyHistory},
		{"budget above deadline", NewSet(Deadline{Period: time.Second}, LatencyBudget{Duration: 2 * time.Second}), PolicyLatencyBudget},
		{"separation above deadline", NewSet(Deadline{Period: time.Second}, TimeBasedFilter{MinimumSeparation: 2 * time.Second}), PolicyTimeBasedFilter},
		{"negative deadline", NewSet(Deadline{Period: -1}), PolicyDeadline},
		{"zero lease", NewSet(Liveliness{Kind: LivelinessAutomatic}), PolicyLiveliness},
		{"zero lifespan", NewSet(Lifespan{}), PolicyLifespan},
		{"empty partition name", NewSet(NewPartition("a", "")), PolicyPartition},
		{"negative blocking time", NewSet(Reliability{Kind: ReliabilityReliable, MaxBlockingTime: -1}), PolicyReliability},
		{"empty tag key", NewSet(NewDataTag(map[string]string{"": "x"})), PolicyDataTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.set)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidQos))

			var pe *PolicyError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.policy, pe.Policies[0])
		})
	}
}

func TestValidate_KeepAllIgnoresDepth(t *testing.T) {
	s := NewSet(
		History{Kind: HistoryKeepAll, Depth: 0},
		ResourceLimits{MaxSamples: 10, MaxInstances: 2, MaxSamplesPerInstance: 5},
	)
	assert.NoError(t, Validate(s))
}

func TestValidate_Deterministic(t *testing.T) {
	s := NewSet(Deadline{Period: time.Second}, LatencyBudget{Duration: 2 * time.Second})
	first := Validate(s)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first.Error(), Validate(s).Error())
	}
}

func TestCheckMutation(t *testing.T) {
	old := DefaultWriter()

	err := CheckMutation(old, old.With(Deadline{Period: time.Second}, NewUserData([]byte("x"))))
	assert.NoError(t, err)

	err = CheckMutation(old, old.With(Durability{Kind: DurabilityTransientLocal}, Deadline{Period: time.Second}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImmutableQos))

	var pe *PolicyError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, []PolicyKind{PolicyDurability}, pe.Policies)
	assert.Contains(t, err.Error(), "DURABILITY")
}

func TestInstanceLimit(t *testing.T) {
	unlimited := ResourceLimits{MaxSamples: Unlimited, MaxInstances: Unlimited, MaxSamplesPerInstance: Unlimited}

	assert.Equal(t, 3, InstanceLimit(History{Kind: HistoryKeepLast, Depth: 3}, unlimited))
	assert.Equal(t, Unlimited, InstanceLimit(History{Kind: HistoryKeepAll}, unlimited))

	rl := unlimited
	rl.MaxSamplesPerInstance = 2
	assert.Equal(t, 2, InstanceLimit(History{Kind: HistoryKeepAll}, rl))
	assert.Equal(t, 1, InstanceLimit(History{Kind: HistoryKeepLast, Depth: 1}, rl))
}
