// Package builtins holds the source text of the modules every compilation
// prepends as leading imports (§6.3, §4.1): jsfx, math, str, gfx, time,
// file, mem, stack, atomic, slider, midi, pin_mapper. Each is parsed once
// by the loader and treated exactly like a user module, except it carries
// no file path of its own and its declarations are always `external`.
package builtins

import (
	_ "embed"
)

//go:embed source/jsfx.jsl
var jsfxSrc string

//go:embed source/math.jsl
var mathSrc string

//go:embed source/str.jsl
var strSrc string

//go:embed source/gfx.jsl
var gfxSrc string

//go:embed source/time.jsl
var timeSrc string

//go:embed source/file.jsl
var fileSrc string

//go:embed source/mem.jsl
var memSrc string

//go:embed source/stack.jsl
var stackSrc string

//go:embed source/atomic.jsl
var atomicSrc string

//go:embed source/slider.jsl
var sliderSrc string

//go:embed source/midi.jsl
var midiSrc string

//go:embed source/pin_mapper.jsl
var pinMapperSrc string

// Names lists the built-in modules in the fixed prepend order used by the
// loader (§4.1: "the built-in imports are prepended in this order").
var Names = []string{
	"jsfx",
	"math",
	"str",
	"gfx",
	"time",
	"file",
	"mem",
	"stack",
	"atomic",
	"slider",
	"midi",
	"pin_mapper",
}

var sources = map[string]string{
	"jsfx":       jsfxSrc,
	"math":       mathSrc,
	"str":        strSrc,
	"gfx":        gfxSrc,
	"time":       timeSrc,
	"file":       fileSrc,
	"mem":        memSrc,
	"stack":      stackSrc,
	"atomic":     atomicSrc,
	"slider":     sliderSrc,
	"midi":       midiSrc,
	"pin_mapper": pinMapperSrc,
}

// Source returns the embedded source of a built-in module by name.
func Source(name string) (string, bool) {
	s, ok := sources[name]
	return s, ok
}

// IsBuiltin reports whether name refers to one of the always-available
// built-in modules rather than something the user must import explicitly.
func IsBuiltin(name string) bool {
	_, ok := sources[name]
	return ok
}
