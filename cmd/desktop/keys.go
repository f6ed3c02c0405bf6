package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"gochip8/pkg/keypad"
)

type keyBinding struct {
	key   ebiten.Key
	index byte
}

var hostKeys = map[string]ebiten.Key{
	"1": ebiten.KeyDigit1, "2": ebiten.KeyDigit2, "3": ebiten.KeyDigit3, "4": ebiten.KeyDigit4,
	"Q": ebiten.KeyQ, "W": ebiten.KeyW, "E": ebiten.KeyE, "R": ebiten.KeyR,
	"A": ebiten.KeyA, "S": ebiten.KeyS, "D": ebiten.KeyD, "F": ebiten.KeyF,
	"Z": ebiten.KeyZ, "X": ebiten.KeyX, "C": ebiten.KeyC, "V": ebiten.KeyV,
}

// defaultKeyBindings resolves keypad.Bindings to ebiten keys.
func defaultKeyBindings() []keyBinding {
	out := make([]keyBinding, 0, len(keypad.Bindings))
	for _, b := range keypad.Bindings {
		k, ok := hostKeys[b.Name]
		if !ok {
			continue
		}
		out = append(out, keyBinding{key: k, index: b.Index})
	}
	return out
}

// applyKeys copies the host key state into the keypad.
func applyKeys(pad *keypad.Keypad, bindings []keyBinding, pressed func(ebiten.Key) bool) {
	for _, b := range bindings {
		pad.SetKey(b.index, pressed(b.key))
	}
}
