// Package flat implements an exhaustive L2 vector index persisted as a single binary file.
package flat

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"lecturetutor/internal/domain"
)

var magic = [4]byte{'L', 'T', 'F', 'I'}

const formatVersion uint32 = 1

// Index is a brute-force index reporting squared Euclidean distances.
// Rows are addressed by insertion order.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

var _ domain.VectorIndex = (*Index)(nil)

func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Index{dimension: dimension}, nil
}

func (x *Index) Dimension() int { return x.dimension }

func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

func (x *Index) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), x.dimension)
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, v := range vectors {
		x.vectors = append(x.vectors, append([]float32(nil), v...))
	}
	return nil
}

// Search returns up to k rows nearest to vector, closest first. Equal distances keep row order.
func (x *Index) Search(vector []float32, k int) ([]domain.Hit, error) {
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(vector), x.dimension)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	if k <= 0 {
		k = 1
	}
	hits := make([]domain.Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = domain.Hit{Position: i, Distance: squaredL2(v, vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Save writes the index: magic, version, dimension, count, then little-endian float32 rows.
func (x *Index) Save(path string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := x.encode(w); err != nil {
		f.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write index: %w", err)
	}
	return f.Close()
}

func (x *Index) encode(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	header := []uint32{formatVersion, uint32(x.dimension), uint32(len(x.vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	buf := make([]byte, 4*x.dimension)
	for _, v := range x.vectors {
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
		}
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// Load reads an index written by Save. A missing file yields an error wrapping
// domain.ErrMissingInput; a malformed one wraps domain.ErrCorruptIndex.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("index not found: %s: %w", path, domain.ErrMissingInput)
		}
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	x, err := decode(bufio.NewReader(f), info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, domain.ErrCorruptIndex, err)
	}
	return x, nil
}

const headerSize = 16

// decode reads an index of size bytes. The header must account for exactly
// the remaining bytes before anything is allocated from it.
func decode(r io.Reader, size int64) (*Index, error) {
	var m [4]byte
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, err
	}
	if m != magic {
		return nil, errors.New("bad magic")
	}
	var header [3]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header[0] != formatVersion {
		return nil, fmt.Errorf("unsupported version %d", header[0])
	}
	dim, count := int(header[1]), int(header[2])
	if dim <= 0 {
		return nil, errors.New("invalid dimension")
	}
	rowSize := 4 * int64(dim)
	body := size - headerSize
	if body < 0 || body%rowSize != 0 || body/rowSize != int64(count) {
		return nil, fmt.Errorf("header declares %d rows of dimension %d, file holds %d bytes", count, dim, size)
	}
	x := &Index{dimension: dim, vectors: make([][]float32, 0, count)}
	buf := make([]byte, 4*dim)
	for n := 0; n < count; n++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		v := make([]float32, dim)
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
		}
		x.vectors = append(x.vectors, v)
	}
	return x, nil
}
