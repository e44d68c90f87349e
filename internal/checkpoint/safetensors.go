package checkpoint

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"golang.org/x/sys/unix"
)

// TensorInfo describes one tensor entry in a safetensors header.
type TensorInfo struct {
	DType string
	Shape []int
	Start int64
	End   int64
}

// NumElements is the element count implied by the shape.
func (t TensorInfo) NumElements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		if d <= 0 {
			return 0
		}
		n *= int64(d)
	}
	return n
}

type tensorHeader struct {
	DType       string  `json:"dtype"`
	Shape       []int   `json:"shape"`
	DataOffsets []int64 `json:"data_offsets"`
}

// readSafetensorsHeader parses the tensor inventory from a safetensors file.
// The file is mapped read-only where available; shard headers for large
// checkpoints run to hundreds of kilobytes and the mapping avoids a copy.
// Falls back to plain reads when mmap is unavailable.
func readSafetensorsHeader(path string) (map[string]TensorInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < 8 {
		return nil, fmt.Errorf("safetensors %s: file too small", path)
	}

	if size <= int64(int(^uint(0)>>1)) {
		data, mmapErr := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
		if mmapErr == nil {
			defer func() { _ = unix.Munmap(data) }()
			headerLen := binary.LittleEndian.Uint64(data[:8])
			if headerLen > uint64(size-8) {
				return nil, fmt.Errorf("safetensors %s: header length %d exceeds file size", path, headerLen)
			}
			return parseHeader(path, data[8:8+headerLen])
		}
	}

	// mmap unavailable: read the header through the file handle.
	var lenBuf [8]byte
	if _, err := io.ReadFull(f, lenBuf[:]); err != nil {
		return nil, err
	}
	headerLen := binary.LittleEndian.Uint64(lenBuf[:])
	if headerLen > uint64(size-8) {
		return nil, fmt.Errorf("safetensors %s: header length %d exceeds file size", path, headerLen)
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, err
	}
	return parseHeader(path, headerBytes)
}

func parseHeader(path string, headerBytes []byte) (map[string]TensorInfo, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("safetensors %s: parse header: %w", path, err)
	}
	delete(raw, "__metadata__")

	tensors := make(map[string]TensorInfo, len(raw))
	for name, msg := range raw {
		var th tensorHeader
		if err := json.Unmarshal(msg, &th); err != nil {
			return nil, fmt.Errorf("safetensors %s: parse tensor %s: %w", path, name, err)
		}
		if len(th.DataOffsets) != 2 || th.DataOffsets[1] < th.DataOffsets[0] {
			return nil, fmt.Errorf("safetensors %s: tensor %s: invalid data_offsets", path, name)
		}
		tensors[name] = TensorInfo{
			DType: th.DType,
			Shape: th.Shape,
			Start: th.DataOffsets[0],
			End:   th.DataOffsets[1],
		}
	}
	return tensors, nil
}
