package cc1

// Arch selects one of the supported System V targets.
type Arch int

const (
	ArchI386 Arch = iota
	ArchX8664
)

// Target describes everything size- and layout-related about the
// machine being compiled for.  The semantic analyzer and the IR
// emitter read this record; no size is hardcoded anywhere else.
type Target struct {
	Arch Arch
	Name string

	Triple     string
	DataLayout string

	PointerSize  int64
	PointerAlign int64

	ShortSize    int64
	IntSize      int64
	LongSize     int64
	LongLongSize int64

	FloatSize      int64
	DoubleSize     int64
	DoubleAlign    int64
	LongDoubleSize  int64
	LongDoubleAlign int64

	// Alignment of 8-byte integers; 4 on i386, 8 on x86_64.
	LongLongAlign int64

	// SizeType is the integer type of sizeof results.
	SizeType Type
}

// TargetI386 is the default target: 32-bit System V.
var TargetI386 = &Target{
	Arch:            ArchI386,
	Name:            "i386",
	Triple:          "i386-linux-gnu",
	DataLayout:      "e-m:e-p:32:32-p270:32:32-p271:32:32-p272:64:64-f64:32:64-f80:32-n8:16:32-S128",
	PointerSize:     4,
	PointerAlign:    4,
	ShortSize:       2,
	IntSize:         4,
	LongSize:        4,
	LongLongSize:    8,
	FloatSize:       4,
	DoubleSize:      8,
	DoubleAlign:     4,
	LongDoubleSize:  12,
	LongDoubleAlign: 4,
	LongLongAlign:   4,
	SizeType:        &IntType{Rank: RankInt, Unsigned: true},
}

// TargetX8664 is the 64-bit System V target.
var TargetX8664 = &Target{
	Arch:            ArchX8664,
	Name:            "x86_64",
	Triple:          "x86_64-linux-gnu",
	DataLayout:      "e-m:e-p270:32:32-p271:32:32-p272:64:64-i64:64-f80:128-n8:16:32:64-S128",
	PointerSize:     8,
	PointerAlign:    8,
	ShortSize:       2,
	IntSize:         4,
	LongSize:        8,
	LongLongSize:    8,
	FloatSize:       4,
	DoubleSize:      8,
	DoubleAlign:     8,
	LongDoubleSize:  16,
	LongDoubleAlign: 16,
	LongLongAlign:   8,
	SizeType:        &IntType{Rank: RankLong, Unsigned: true},
}

// TargetByName maps the -m32/-m64 selection to a target record.
func TargetByName(name string) *Target {
	if name == "x86_64" || name == "m64" {
		return TargetX8664
	}
	return TargetI386
}
