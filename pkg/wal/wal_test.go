package wal

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Seq    uint64 `json:"seq"`
	Amount int64  `json:"amount"`
}

// TestWALWriteReadAll 寫入刷新後可逐筆讀回，順序不變
func TestWALWriteReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Write(&testRecord{Seq: uint64(i), Amount: int64(i * 10)}))
	}
	require.NoError(t, w.Flush())

	var got []testRecord
	err = w.ReadAll(func(raw []byte) error {
		var rec testRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		got = append(got, rec)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, uint64(1), got[0].Seq)
	assert.Equal(t, int64(30), got[2].Amount)
}

// TestWALReopenAppend 重新開啟後繼續追加，舊資料保留
func TestWALReopenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := NewWAL(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(&testRecord{Seq: 1, Amount: 10}))
	require.NoError(t, w.Close()) // Close 會刷新

	w, err = NewWAL(path)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Write(&testRecord{Seq: 2, Amount: 20}))

	// ReadAll 會先刷新緩衝區再讀
	var count int
	err = w.ReadAll(func(raw []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// TestWALReadAllThenWrite O_APPEND 保證讀取後的寫入仍落在檔尾
func TestWALReadAllThenWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(&testRecord{Seq: 1, Amount: 10}))
	require.NoError(t, w.ReadAll(func([]byte) error { return nil }))

	require.NoError(t, w.Write(&testRecord{Seq: 2, Amount: 20}))
	require.NoError(t, w.Flush())

	var seqs []uint64
	err = w.ReadAll(func(raw []byte) error {
		var rec testRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		seqs = append(seqs, rec.Seq)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seqs)
}

// TestWALEmptyFile 空檔案讀取不報錯也不回呼
func TestWALEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.log")

	w, err := NewWAL(path)
	require.NoError(t, err)
	defer w.Close()

	called := false
	require.NoError(t, w.ReadAll(func([]byte) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}
