package qos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionsMatch(t *testing.T) {
	tests := []struct {
		name string
		a, b Partition
		want bool
	}{
		{"both default", Partition{}, Partition{}, true},
		{"default vs named", Partition{}, NewPartition("a"), false},
		{"explicit default", NewPartition(""), Partition{}, true},
		{"shared name", NewPartition("a", "b"), NewPartition("c", "b"), true},
		{"disjoint", NewPartition("a"), NewPartition("b"), false},
		{"wildcard left", NewPartition("sensor/*"), NewPartition("sensor/imu"), true},
		{"wildcard right", NewPartition("sensor/imu"), NewPartition("sensor/?mu"), true},
		{"wildcard both", NewPartition("sensor/*"), NewPartition("sensor/*"), true},
		{"different wildcards", NewPartition("sensor/*"), NewPartition("sens*"), false},
		{"wildcard miss", NewPartition("camera/*"), NewPartition("sensor/imu"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PartitionsMatch(tt.a, tt.b))
			assert.Equal(t, tt.want, PartitionsMatch(tt.b, tt.a))
		})
	}
}
