package microstructure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"cemhyd/internal/phase"
)

// Raster files hold one integer per voxel, whitespace separated, with x
// varying fastest, then y, then z.

// ReadPhases parses an n^3 phase raster into linear index order.
func ReadPhases(r io.Reader, n int) ([]phase.Phase, error) {
	out := make([]phase.Phase, n*n*n)
	err := scanRaster(r, n, func(i int, v int64) error {
		if v < 0 || v >= int64(phase.Count) || !phase.Phase(v).Valid() {
			return fmt.Errorf("invalid phase id %d", v)
		}
		out[i] = phase.Phase(v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading phase raster: %w", err)
	}
	return out, nil
}

// ReadParticles parses an n^3 particle-id raster into linear index order.
func ReadParticles(r io.Reader, n int) ([]int32, error) {
	out := make([]int32, n*n*n)
	err := scanRaster(r, n, func(i int, v int64) error {
		if v < 0 {
			return fmt.Errorf("negative particle id %d", v)
		}
		out[i] = int32(v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading particle raster: %w", err)
	}
	return out, nil
}

func scanRaster(r io.Reader, n int, put func(i int, v int64) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	total := n * n * n
	k := 0
	for ; k < total && sc.Scan(); k++ {
		v, err := strconv.ParseInt(sc.Text(), 10, 64)
		if err != nil {
			return fmt.Errorf("value %d: %w", k+1, err)
		}
		x := k % n
		y := (k / n) % n
		z := k / (n * n)
		if err := put((x*n+y)*n+z, v); err != nil {
			return fmt.Errorf("value %d: %w", k+1, err)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if k < total {
		return fmt.Errorf("expected %d values, found %d", total, k)
	}
	return nil
}

// WriteRaster writes the display ids of the grid in raster order.
func (s *Store) WriteRaster(w io.Writer) error {
	bw := bufio.NewWriter(w)
	n := s.lat.N
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				id := s.phases[s.lat.Index(x, y, z)].Display()
				if _, err := bw.WriteString(strconv.Itoa(int(id))); err != nil {
					return err
				}
				if err := bw.WriteByte('\n'); err != nil {
					return err
				}
			}
		}
	}
	return bw.Flush()
}
