// Package sessionlog records processed sweeps to a chunked directory log and
// replays them.
//
// A log directory holds header.json, an index.bin seek index of fixed-size
// little-endian entries, and frames/chunk_NNNN.pb files of length-prefixed
// protobuf frames.
package sessionlog

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sweepview/internal/fsutil"
	"github.com/banshee-data/sweepview/internal/history"
	"github.com/banshee-data/sweepview/internal/monitoring"
	"github.com/banshee-data/sweepview/internal/sensor"
	"github.com/banshee-data/sweepview/internal/version"
)

// Version is written to every header.
const Version = "1.0"

// ChunkSize is the number of frames per chunk file.
const ChunkSize = 1000

// maxFrameBytes bounds a single frame on read.
const maxFrameBytes = 64 << 20

var logf = monitoring.Component("sessionlog")

// Header describes a recorded session.
type Header struct {
	Version      string        `json:"version"`
	Writer       string        `json:"writer"`
	SessionID    string        `json:"session_id"`
	CreatedNs    int64         `json:"created_ns"`
	ServiceType  string        `json:"service_type"`
	SensorConfig sensor.Config `json:"sensor_config"`
	ClutterFile  string        `json:"clutter_file,omitempty"`
	TotalFrames  uint64        `json:"total_frames"`
	StartNs      int64         `json:"start_ns"`
	EndNs        int64         `json:"end_ns"`
}

// indexEntry locates one frame. Encoded as 24 bytes.
type indexEntry struct {
	Frame       uint64
	TimestampNs int64
	Chunk       uint32
	Offset      uint32
}

const indexEntrySize = 24

func chunkPath(base string, chunk int) string {
	return filepath.Join(base, "frames", fmt.Sprintf("chunk_%04d.pb", chunk))
}

// Recorder appends frames to a session log. It is safe for concurrent use.
type Recorder struct {
	fsys     fsutil.FileSystem
	basePath string

	mu          sync.Mutex
	header      Header
	index       []indexEntry
	chunk       int
	chunkFile   io.WriteCloser
	chunkOffset uint32
	closed      bool
}

// NewRecorder creates the log directory at basePath. An empty basePath
// selects a new directory under the OS temp dir. created is stored in the
// header as the session creation time.
func NewRecorder(fsys fsutil.FileSystem, basePath, serviceType string, cfg sensor.Config, clutterFile string, created time.Time) (*Recorder, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	id := uuid.New()
	if basePath == "" {
		basePath = filepath.Join(os.TempDir(), "sweepview_"+id.String())
	}
	if err := fsys.MkdirAll(filepath.Join(basePath, "frames"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &Recorder{
		fsys:     fsys,
		basePath: basePath,
		chunk:    -1,
		header: Header{
			Version:      Version,
			Writer:       version.String(),
			SessionID:    id.String(),
			CreatedNs:    created.UnixNano(),
			ServiceType:  serviceType,
			SensorConfig: cfg,
			ClutterFile:  clutterFile,
		},
	}
	logf("recording session %s to %s", r.header.SessionID, basePath)
	return r, nil
}

// Record appends rec captured at ts.
func (r *Recorder) Record(rec history.Record, ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("recorder is closed")
	}

	data, err := encodeFrame(Frame{Record: rec, TimestampNs: ts.UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	frame := r.header.TotalFrames
	chunk := int(frame / ChunkSize)
	if chunk != r.chunk {
		if err := r.rotate(chunk); err != nil {
			return err
		}
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := r.chunkFile.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := r.chunkFile.Write(data); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	r.index = append(r.index, indexEntry{
		Frame:       frame,
		TimestampNs: ts.UnixNano(),
		Chunk:       uint32(chunk),
		Offset:      r.chunkOffset,
	})
	r.chunkOffset += uint32(4 + len(data))

	if r.header.TotalFrames == 0 {
		r.header.StartNs = ts.UnixNano()
	}
	r.header.EndNs = ts.UnixNano()
	r.header.TotalFrames++
	return nil
}

func (r *Recorder) rotate(chunk int) error {
	if r.chunkFile != nil {
		if err := r.chunkFile.Close(); err != nil {
			return fmt.Errorf("failed to close chunk %d: %w", r.chunk, err)
		}
	}
	f, err := r.fsys.Create(chunkPath(r.basePath, chunk))
	if err != nil {
		return fmt.Errorf("failed to create chunk file: %w", err)
	}
	r.chunkFile = f
	r.chunk = chunk
	r.chunkOffset = 0
	return nil
}

// Close flushes the current chunk and writes the header and index. Closing
// twice is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if r.chunkFile != nil {
		errs = append(errs, r.chunkFile.Close())
	}

	headerData, err := json.MarshalIndent(r.header, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := r.fsys.WriteFile(filepath.Join(r.basePath, "header.json"), headerData, 0644); err != nil {
		errs = append(errs, fmt.Errorf("failed to write header: %w", err))
	}

	var buf bytes.Buffer
	for _, e := range r.index {
		if err := binary.Write(&buf, binary.LittleEndian, e); err != nil {
			return fmt.Errorf("failed to encode index: %w", err)
		}
	}
	if err := r.fsys.WriteFile(filepath.Join(r.basePath, "index.bin"), buf.Bytes(), 0644); err != nil {
		errs = append(errs, fmt.Errorf("failed to write index: %w", err))
	}

	logf("closed session %s: %d frames", r.header.SessionID, r.header.TotalFrames)
	return errors.Join(errs...)
}

// Header returns the header as it would be written now.
func (r *Recorder) Header() Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

// Path returns the log directory.
func (r *Recorder) Path() string { return r.basePath }

// Replayer reads frames from a closed session log. It implements the
// playback source contract: Next returns io.EOF after the last frame.
type Replayer struct {
	fsys     fsutil.FileSystem
	basePath string
	header   Header
	index    []indexEntry

	mu        sync.Mutex
	pos       int
	chunk     int
	chunkData []byte
}

// OpenReplayer reads the header and index of the log at basePath.
func OpenReplayer(fsys fsutil.FileSystem, basePath string) (*Replayer, error) {
	if fsys == nil {
		fsys = fsutil.OSFileSystem{}
	}
	r := &Replayer{fsys: fsys, basePath: basePath, chunk: -1}

	headerData, err := fsutil.ReadFileLimited(fsys, filepath.Join(basePath, "header.json"), 1<<20)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := json.Unmarshal(headerData, &r.header); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	indexData, err := fsys.ReadFile(filepath.Join(basePath, "index.bin"))
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	if len(indexData)%indexEntrySize != 0 {
		return nil, fmt.Errorf("index is %d bytes, not a multiple of %d", len(indexData), indexEntrySize)
	}
	r.index = make([]indexEntry, len(indexData)/indexEntrySize)
	if err := binary.Read(bytes.NewReader(indexData), binary.LittleEndian, r.index); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	if uint64(len(r.index)) != r.header.TotalFrames {
		return nil, fmt.Errorf("index has %d frames, header says %d", len(r.index), r.header.TotalFrames)
	}
	return r, nil
}

// Header returns the log header.
func (r *Replayer) Header() Header { return r.header }

// Len returns the number of frames in the log.
func (r *Replayer) Len() int { return len(r.index) }

// Seek positions the replayer at frame i.
func (r *Replayer) Seek(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.index) {
		return fmt.Errorf("frame index out of range: %d not in [0, %d)", i, len(r.index))
	}
	r.pos = i
	return nil
}

// SeekToTimestamp positions the replayer at the first frame captured at or
// after ts, or at the last frame when ts is past the end.
func (r *Replayer) SeekToTimestamp(ts time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.index) == 0 {
		return errors.New("log is empty")
	}
	ns := ts.UnixNano()
	i := sort.Search(len(r.index), func(i int) bool { return r.index[i].TimestampNs >= ns })
	r.pos = min(i, len(r.index)-1)
	return nil
}

// ReadFrame returns the frame at the current position and advances.
func (r *Replayer) ReadFrame() (Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.index) {
		return Frame{}, io.EOF
	}
	e := r.index[r.pos]
	if int(e.Chunk) != r.chunk {
		data, err := fsutil.ReadFileLimited(r.fsys, chunkPath(r.basePath, int(e.Chunk)), 1<<32-1)
		if err != nil {
			return Frame{}, fmt.Errorf("failed to read chunk %d: %w", e.Chunk, err)
		}
		r.chunkData = data
		r.chunk = int(e.Chunk)
	}

	off := uint64(e.Offset)
	if off+4 > uint64(len(r.chunkData)) {
		return Frame{}, fmt.Errorf("frame %d: offset %d outside chunk", e.Frame, off)
	}
	n := uint64(binary.LittleEndian.Uint32(r.chunkData[off:]))
	off += 4
	if n > maxFrameBytes || off+n > uint64(len(r.chunkData)) {
		return Frame{}, fmt.Errorf("frame %d: invalid length %d", e.Frame, n)
	}
	f, err := decodeFrame(r.chunkData[off : off+n])
	if err != nil {
		return Frame{}, fmt.Errorf("frame %d: %w", e.Frame, err)
	}
	r.pos++
	return f, nil
}

// Next returns the record of the next frame.
func (r *Replayer) Next() (history.Record, error) {
	f, err := r.ReadFrame()
	return f.Record, err
}
