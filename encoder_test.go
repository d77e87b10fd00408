package scavenger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArchivePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "archive.scav")
}

func TestEncoder_Scenario1(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "01020304", "exampl")
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, enc.BeginObject())
	require.NoError(t, enc.Write([]byte("Hi")))
	require.NoError(t, enc.Complete())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 38)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x26}, data[10:16])
	assert.Equal(t, []byte("Hi"), data[16:18])
	assert.Equal(t, []byte{0x20, 0x20}, data[18:20]) // 2 bytes of 0x20 padding

	dec, err := Open(path)
	require.NoError(t, err)
	defer dec.Close()

	matches, err := dec.Matches("01020304", "exampl")
	require.NoError(t, err)
	assert.True(t, matches)
}

func TestEncoder_Scenario2(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "deadbeef", "abcdef123456")
	require.NoError(t, err)
	defer enc.Close()

	sizes := []int{5, 1, 7}
	for _, size := range sizes {
		require.NoError(t, enc.BeginObject())
		require.NoError(t, enc.Write(make([]byte, size)))
	}
	require.NoError(t, enc.Complete())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 74, info.Size())
	assert.Zero(t, info.Size()%4-2)

	dec, err := Open(path)
	require.NoError(t, err)
	defer dec.Close()

	require.EqualValues(t, 3, dec.Count())

	wantOffsets := []uint64{16, 21, 22}
	wantSizes := []uint64{5, 1, 7}
	for i := range sizes {
		size, err := dec.Measure(uint64(i))
		require.NoError(t, err)
		assert.Equal(t, wantSizes[i], size)

		rec, err := dec.record(uint64(i))
		require.NoError(t, err)
		assert.Equal(t, wantOffsets[i], rec.Offset)
	}
}

func TestEncoder_ZeroObjects(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, enc.Complete())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 22, info.Size())
	assert.Zero(t, info.Size()%4-2)

	dec, err := Open(path)
	require.NoError(t, err)
	defer dec.Close()
	assert.EqualValues(t, 0, dec.Count())
}

func TestEncoder_EmptyObjectError(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, enc.BeginObject())
	err = enc.Complete()
	assert.Error(t, err)
	assert.True(t, enc.ErrorState())
	assert.NotEmpty(t, enc.LastErrorMessage())
}

func TestEncoder_NoObjectOpenOnWrite(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)
	defer enc.Close()

	err = enc.Write([]byte("x"))
	assert.Error(t, err)
	assert.True(t, enc.ErrorState())
}

func TestEncoder_CompleteTwiceFails(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, enc.BeginObject())
	require.NoError(t, enc.Write([]byte("x")))
	require.NoError(t, enc.Complete())

	err = enc.Complete()
	assert.Error(t, err)
}

func TestEncoder_PaddingTable(t *testing.T) {
	tests := []struct {
		payloadLen      int
		wantPaddingLen  int
		wantTotalLenMod int
	}{
		{4, 0, 2},
		{1, 3, 2},
		{2, 2, 2},
		{3, 1, 2},
	}

	for _, tt := range tests {
		path := newArchivePath(t)

		enc, err := New(path, "00000000", "000000000000")
		require.NoError(t, err)

		require.NoError(t, enc.BeginObject())
		require.NoError(t, enc.Write(make([]byte, tt.payloadLen)))
		require.NoError(t, enc.Complete())

		info, err := os.Stat(path)
		require.NoError(t, err)

		wantSize := 16 + tt.payloadLen + tt.wantPaddingLen + 12 + 6
		assert.EqualValues(t, wantSize, info.Size())
		assert.EqualValues(t, tt.wantTotalLenMod, info.Size()%4)
	}
}

func TestEncoder_CloseBeforeCompleteUnlinksFile(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)

	require.NoError(t, enc.BeginObject())
	require.NoError(t, enc.Write([]byte("partial")))

	require.NoError(t, enc.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEncoder_CloseAfterCompleteIsNoop(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)

	require.NoError(t, enc.BeginObject())
	require.NoError(t, enc.Write([]byte("x")))
	require.NoError(t, enc.Complete())

	require.NoError(t, enc.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestEncoder_InvalidSignature(t *testing.T) {
	path := newArchivePath(t)

	_, err := New(path, "not-hex!", "000000000000")
	assert.Error(t, err)

	_, err = New(path, "00000000", "tooshort")
	assert.Error(t, err)
}

func TestEncoder_ObjectWriter(t *testing.T) {
	path := newArchivePath(t)

	enc, err := New(path, "00000000", "000000000000")
	require.NoError(t, err)
	defer enc.Close()

	require.NoError(t, enc.BeginObject())
	n, err := enc.ObjectWriter().Write([]byte("chunked"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, enc.Complete())

	dec, err := Open(path)
	require.NoError(t, err)
	defer dec.Close()

	data, err := dec.ReadFull(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("chunked"), data)
}
