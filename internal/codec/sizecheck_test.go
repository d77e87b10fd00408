package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckMultiplyOverflow(t *testing.T) {
	tests := []struct {
		name    string
		a, b    uint64
		wantErr bool
	}{
		{"zero operand", 0, 12, false},
		{"small values", 1000, 12, false},
		{"overflow", MaxU48, MaxU48, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMultiplyOverflow(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSafeMultiply(t *testing.T) {
	got, err := SafeMultiply(7, 12)
	require.NoError(t, err)
	require.Equal(t, uint64(84), got)

	_, err = SafeMultiply(MaxU48, MaxU48)
	require.Error(t, err)
}

func TestProjectedSize(t *testing.T) {
	tests := []struct {
		name         string
		count, bytes uint64
		want         uint64
	}{
		{"empty archive", 0, 0, 25},
		{"one object, 2 bytes", 1, 2, 39},
		{"three objects, 13 bytes payload", 3, 13, 74},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ProjectedSize(tt.count, tt.bytes)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExceedsLimit(t *testing.T) {
	require.False(t, ExceedsLimit(MaxU48))
	require.True(t, ExceedsLimit(MaxU48+1))
}
