package utils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"gochip8/pkg/cpu"
)

func TestGetPathInfo(t *testing.T) {
	full, parent, err := GetPathInfo("roms/../roms/pong.ch8")
	assert.NoError(t, err)
	assert.True(t, filepath.IsAbs(full))
	assert.Equal(t, "pong.ch8", filepath.Base(full))
	assert.Equal(t, "roms", filepath.Base(parent))
}

func TestLoadROM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ch8")
	assert.NoError(t, os.WriteFile(path, []byte{0x00, 0xE0, 0x12, 0x00}, 0o644))

	rom, err := LoadROM(path)
	assert.NoError(t, err)
	assert.True(t, bytes.Equal([]byte{0x00, 0xE0, 0x12, 0x00}, rom))
}

func TestLoadROMTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.ch8")
	assert.NoError(t, os.WriteFile(path, make([]byte, cpu.MaxROMSize+1), 0o644))

	_, err := LoadROM(path)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, cpu.ErrMalformedROM))
}

func TestLoadROMMissing(t *testing.T) {
	_, err := LoadROM(filepath.Join(t.TempDir(), "missing.ch8"))
	assert.ErrorContains(t, err, "reading ROM")
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "game.ch8", ReplaceExt("game.asm", ".ch8"))
	assert.Equal(t, "dir/game.ch8", ReplaceExt("dir/game", ".ch8"))
	assert.Equal(t, "a.b.txt", ReplaceExt("a.b.c", ".txt"))
}
