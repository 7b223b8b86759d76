package keys

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofkit/internal/circuits"
)

type memSource struct {
	blobs map[string][]byte
	opens atomic.Int32
	fail  atomic.Bool
}

func (s *memSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.opens.Add(1)
	if s.fail.Load() {
		return nil, errors.New("unreachable")
	}
	b, ok := s.blobs[name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func gz(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func payloadDecoder(seen *[]string) Decoder {
	return func(cs, pk io.Reader) (*Material, error) {
		a, _ := io.ReadAll(cs)
		b, _ := io.ReadAll(pk)
		*seen = append(*seen, string(a)+"|"+string(b))
		return &Material{}, nil
	}
}

func TestRegistryLoadsOnce(t *testing.T) {
	src := &memSource{blobs: map[string][]byte{
		CircuitFile(circuits.Deposit):    gz(t, "cs"),
		ProvingKeyFile(circuits.Deposit): gz(t, "pk"),
	}}
	var seen []string
	r := NewRegistry(src, zerolog.Nop()).WithDecoder(payloadDecoder(&seen))
	assert.Equal(t, Uninitialized, r.State(circuits.Deposit))

	var wg sync.WaitGroup
	results := make([]*Material, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Get(context.Background(), circuits.Deposit)
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(2), src.opens.Load())
	assert.Equal(t, []string{"cs|pk"}, seen)
	assert.Equal(t, Ready, r.State(circuits.Deposit))
	for _, m := range results {
		assert.Same(t, results[0], m)
	}
}

func TestRegistryRetriesAfterFailure(t *testing.T) {
	src := &memSource{blobs: map[string][]byte{
		CircuitFile(circuits.Withdraw):    gz(t, "cs"),
		ProvingKeyFile(circuits.Withdraw): gz(t, "pk"),
	}}
	src.fail.Store(true)
	var seen []string
	r := NewRegistry(src, zerolog.Nop()).WithDecoder(payloadDecoder(&seen))

	_, err := r.Get(context.Background(), circuits.Withdraw)
	require.Error(t, err)
	assert.Equal(t, Uninitialized, r.State(circuits.Withdraw))

	src.fail.Store(false)
	_, err = r.Get(context.Background(), circuits.Withdraw)
	require.NoError(t, err)
	assert.Equal(t, Ready, r.State(circuits.Withdraw))
}

func TestRegistryRejectsUncompressedBlob(t *testing.T) {
	src := &memSource{blobs: map[string][]byte{
		CircuitFile(circuits.InputRoot):    []byte("plain"),
		ProvingKeyFile(circuits.InputRoot): gz(t, "pk"),
	}}
	var seen []string
	r := NewRegistry(src, zerolog.Nop()).WithDecoder(payloadDecoder(&seen))
	_, err := r.Get(context.Background(), circuits.InputRoot)
	require.Error(t, err)
	assert.Empty(t, seen)
}

func TestDirSourceWithWriteGzip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteGzip(dir, CircuitFile(circuits.OutputRoot), func(w io.Writer) error {
		_, err := w.Write([]byte("cs"))
		return err
	}))
	require.NoError(t, WriteGzip(dir, ProvingKeyFile(circuits.OutputRoot), func(w io.Writer) error {
		_, err := w.Write([]byte("pk"))
		return err
	}))
	_, err := os.Stat(filepath.Join(dir, "OutputRoot.r1cs.gz"))
	require.NoError(t, err)

	var seen []string
	r := NewRegistry(NewSource(dir), zerolog.Nop()).WithDecoder(payloadDecoder(&seen))
	_, err = r.Get(context.Background(), circuits.OutputRoot)
	require.NoError(t, err)
	assert.Equal(t, []string{"cs|pk"}, seen)
}
