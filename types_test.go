package cc1

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarSizes(t *testing.T) {
	for _, test := range []struct {
		Name  string
		Typ   Type
		I386  int64
		X8664 int64
	}{
		{Name: "Char", Typ: &IntType{Rank: RankChar, PlainChar: true}, I386: 1, X8664: 1},
		{Name: "Short", Typ: &IntType{Rank: RankShort}, I386: 2, X8664: 2},
		{Name: "Int", Typ: &IntType{Rank: RankInt}, I386: 4, X8664: 4},
		{Name: "Long", Typ: &IntType{Rank: RankLong}, I386: 4, X8664: 8},
		{Name: "LongLong", Typ: &IntType{Rank: RankLongLong}, I386: 8, X8664: 8},
		{Name: "Float", Typ: &FloatType{Prec: PrecFloat}, I386: 4, X8664: 4},
		{Name: "Double", Typ: &FloatType{Prec: PrecDouble}, I386: 8, X8664: 8},
		{Name: "LongDouble", Typ: &FloatType{Prec: PrecLongDouble}, I386: 12, X8664: 16},
		{Name: "Pointer", Typ: &PointerType{Elem: &VoidType{}}, I386: 4, X8664: 8},
	} {
		t.Run(test.Name, func(t *testing.T) {
			sz, err := TargetI386.SizeOf(test.Typ)
			require.NoError(t, err)
			assert.Equal(t, test.I386, sz)

			sz, err = TargetX8664.SizeOf(test.Typ)
			require.NoError(t, err)
			assert.Equal(t, test.X8664, sz)
		})
	}
}

func TestStructLayout(t *testing.T) {
	mk := func() *StructType {
		return &StructType{Tag: "S", Fields: []*Field{
			{Name: "a", Type: &IntType{Rank: RankInt}},
			{Name: "b", Type: &FloatType{Prec: PrecFloat}},
			{Name: "c", Type: &IntType{Rank: RankChar, PlainChar: true}},
		}}
	}

	st := mk()
	require.NoError(t, TargetI386.layout(st))
	assert.Equal(t, int64(0), st.Fields[0].Offset)
	assert.Equal(t, int64(4), st.Fields[1].Offset)
	assert.Equal(t, int64(8), st.Fields[2].Offset)

	sz, err := TargetI386.SizeOf(st)
	require.NoError(t, err)
	assert.Equal(t, int64(12), sz)
	al, err := TargetI386.AlignOf(st)
	require.NoError(t, err)
	assert.Equal(t, int64(4), al)
}

// Doubles align to 4 on i386 but to 8 on x86_64, so the same struct
// lays out differently per target.
func TestStructLayoutTargetSensitive(t *testing.T) {
	mk := func() *StructType {
		return &StructType{Tag: "D", Fields: []*Field{
			{Name: "c", Type: &IntType{Rank: RankChar, PlainChar: true}},
			{Name: "d", Type: &FloatType{Prec: PrecDouble}},
		}}
	}

	st32 := mk()
	require.NoError(t, TargetI386.layout(st32))
	assert.Equal(t, int64(4), st32.Fields[1].Offset)
	sz, _ := TargetI386.SizeOf(st32)
	assert.Equal(t, int64(12), sz)

	st64 := mk()
	require.NoError(t, TargetX8664.layout(st64))
	assert.Equal(t, int64(8), st64.Fields[1].Offset)
	sz, _ = TargetX8664.SizeOf(st64)
	assert.Equal(t, int64(16), sz)
}

func TestUnionLayout(t *testing.T) {
	un := &StructType{Union: true, Tag: "U", Fields: []*Field{
		{Name: "i", Type: &IntType{Rank: RankInt}},
		{Name: "c", Type: &ArrayType{Elem: &IntType{Rank: RankChar, PlainChar: true}, Len: 6}},
	}}
	require.NoError(t, TargetI386.layout(un))
	assert.Equal(t, int64(0), un.Fields[0].Offset)
	assert.Equal(t, int64(0), un.Fields[1].Offset)
	sz, _ := TargetI386.SizeOf(un)
	assert.Equal(t, int64(8), sz)
}

// Every complete type's size is a positive multiple of its
// alignment, and member offsets are monotonic and member-aligned.
func TestLayoutInvariants(t *testing.T) {
	types := []Type{
		&IntType{Rank: RankChar, PlainChar: true},
		&IntType{Rank: RankShort},
		&IntType{Rank: RankInt},
		&IntType{Rank: RankLong},
		&IntType{Rank: RankLongLong, Unsigned: true},
		&FloatType{Prec: PrecFloat},
		&FloatType{Prec: PrecDouble},
		&FloatType{Prec: PrecLongDouble},
		&PointerType{Elem: &IntType{Rank: RankInt}},
		&ArrayType{Elem: &IntType{Rank: RankShort}, Len: 7},
	}
	for _, tg := range []*Target{TargetI386, TargetX8664} {
		st := &StructType{Tag: "inv"}
		for i, typ := range types {
			st.Fields = append(st.Fields, &Field{Name: string(rune('a' + i)), Type: typ})
		}
		require.NoError(t, tg.layout(st))

		for _, typ := range append(types, Type(st)) {
			sz, err := tg.SizeOf(typ)
			require.NoError(t, err)
			al, err := tg.AlignOf(typ)
			require.NoError(t, err)
			assert.Positive(t, sz)
			assert.Positive(t, al)
			assert.Zero(t, sz%al, "%s on %s: size %d, align %d", typ, tg.Name, sz, al)
		}

		prev := int64(-1)
		for _, f := range st.Fields {
			al, _ := tg.AlignOf(f.Type)
			assert.GreaterOrEqual(t, f.Offset, prev)
			assert.Zero(t, f.Offset%al)
			prev = f.Offset
		}
	}
}

func TestIncompleteTypeQueriesFail(t *testing.T) {
	ref := &StructType{Tag: "fwd"}
	_, err := TargetI386.SizeOf(ref)
	assert.ErrorIs(t, err, errIncomplete)
	_, err = TargetI386.AlignOf(ref)
	assert.ErrorIs(t, err, errIncomplete)

	open := &ArrayType{Elem: &IntType{Rank: RankInt}, Incomplete: true}
	_, err = TargetI386.SizeOf(open)
	assert.ErrorIs(t, err, errIncomplete)
}
