package vm

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// registerState is the JSON-serializable snapshot of a VM's registers.
type registerState struct {
	ProgramCounter int `json:"program_counter"`
	StackPointer   int `json:"stack_pointer"`
	FramePointer   int `json:"frame_pointer"`
	ExtremePointer int `json:"extreme_pointer"`
}

// Snapshot serializes the complete state of a running VM — registers,
// program image, and memory image — into an in-memory ZIP archive.
func (v *VM) Snapshot() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := registerState{
		ProgramCounter: v.ProgramCounter,
		StackPointer:   v.StackPointer,
		FramePointer:   v.FramePointer,
		ExtremePointer: v.ExtremePointer,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal registers: %w", err)
	}
	if err := writeZipEntry(zw, "registers.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "program.bin", v.Program.Bytes()); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "memory.bin", v.Memory.Bytes()); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore deserializes a ZIP archive produced by Snapshot and applies it
// to v. The program and memory buffers must already be sized to match
// the snapshot; a size mismatch is reported as an ArgumentError rather
// than silently truncating or zero-padding the difference.
func (v *VM) Restore(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "registers.json")
	if err != nil {
		return err
	}
	var state registerState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal registers: %w", err)
	}

	programData, err := readZipEntry(fileMap, "program.bin")
	if err != nil {
		return err
	}
	if len(programData) != v.Program.Size() {
		return &ArgumentError{What: "snapshot program image", Size: len(programData)}
	}
	memData, err := readZipEntry(fileMap, "memory.bin")
	if err != nil {
		return err
	}
	if len(memData) != v.Memory.Size() {
		return &ArgumentError{What: "snapshot memory image", Size: len(memData)}
	}

	copy(v.Program.Bytes(), programData)
	copy(v.Memory.Bytes(), memData)
	v.ProgramCounter = state.ProgramCounter
	v.StackPointer = state.StackPointer
	v.FramePointer = state.FramePointer
	v.ExtremePointer = state.ExtremePointer
	return nil
}

// SnapshotToFile writes the snapshot archive to path.
func (v *VM) SnapshotToFile(path string) error {
	data, err := v.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a snapshot archive from path and applies it to v.
func (v *VM) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return v.Restore(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
