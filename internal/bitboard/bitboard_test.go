package bitboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countBy(pieces []Piece) (bySide map[Side]int, byKind map[Kind]int) {
	bySide = make(map[Side]int)
	byKind = make(map[Kind]int)
	for _, p := range pieces {
		bySide[p.Side]++
		byKind[p.Kind]++
	}
	return
}

func TestNewBoardStartingPosition(t *testing.T) {
	b := New()
	pieces := b.Pieces()
	require.Len(t, pieces, 32)

	bySide, byKind := countBy(pieces)
	assert.Equal(t, 16, bySide[White])
	assert.Equal(t, 16, bySide[Black])
	assert.Equal(t, 16, byKind[Pawn])
	assert.Equal(t, 4, byKind[Rook])
	assert.Equal(t, 4, byKind[Knight])
	assert.Equal(t, 4, byKind[Bishop])
	assert.Equal(t, 2, byKind[Queen])
	assert.Equal(t, 2, byKind[King])

	for i := 1; i < len(pieces); i++ {
		assert.Less(t, pieces[i-1].Square, pieces[i].Square, "piece list must be in ascending square order")
	}

	white, black := b.Occupancy()
	assert.Equal(t, uint64(0x000000000000FFFF), white)
	assert.Equal(t, uint64(0xFFFF000000000000), black)
}

func TestApplyEmptyFromIsRejected(t *testing.T) {
	b := New()
	before := *b

	assert.False(t, b.Apply(Move{From: 28, To: 36}), "square 28 is empty at the start")
	assert.Equal(t, before, *b, "a rejected move must leave the board untouched")
}

func TestApplyOutOfRangeIsRejected(t *testing.T) {
	b := New()
	before := *b

	assert.False(t, b.Apply(Move{From: -1, To: 12}))
	assert.False(t, b.Apply(Move{From: 12, To: 64}))
	assert.Equal(t, before, *b)
}

func TestApplyRelocatesWithoutLegalityChecks(t *testing.T) {
	b := New()

	// Pawn two-square advance e2-e4 in index terms.
	require.True(t, b.Apply(Move{From: 12, To: 28}))
	assert.NotZero(t, b.KindMask(Pawn)&(1<<28))
	assert.Zero(t, b.KindMask(Pawn)&(1<<12))

	found := false
	for _, p := range b.Pieces() {
		if p.Square == 28 {
			found = true
			assert.Equal(t, Pawn, p.Kind)
			assert.Equal(t, White, p.Side)
		}
	}
	assert.True(t, found, "moved pawn must appear in the piece list")

	// No shape checking: a rook teleport across the board succeeds too.
	require.True(t, b.Apply(Move{From: 0, To: 42}))
	assert.NotZero(t, b.KindMask(Rook)&(1<<42))
}

func TestApplyCaptureClearsDestination(t *testing.T) {
	b := New()
	require.True(t, b.Apply(Move{From: 12, To: 28})) // white pawn out
	require.True(t, b.Apply(Move{From: 52, To: 36})) // black pawn out
	require.True(t, b.Apply(Move{From: 28, To: 36})) // white takes

	require.Len(t, b.Pieces(), 31, "captured piece must be gone")
	var at36 *Piece
	for _, p := range b.Pieces() {
		if p.Square == 36 {
			q := p
			at36 = &q
		}
	}
	require.NotNil(t, at36)
	assert.Equal(t, Pawn, at36.Kind)
	assert.Equal(t, White, at36.Side)
}

func TestKindMasksStayDisjoint(t *testing.T) {
	b := New()
	moves := []Move{
		{12, 28}, {52, 36}, {28, 36}, // pawn trade square
		{6, 21}, {57, 42}, // knights
		{36, 44}, // pawn pushes on
		{3, 12},  // queen wanders
	}
	for _, m := range moves {
		require.True(t, b.Apply(m), "move %+v should relocate an occupied square", m)

		union := uint64(0)
		for k := Pawn; k < kindCount; k++ {
			mask := b.KindMask(k)
			assert.Zero(t, union&mask, "square present in more than one kind mask after %+v", m)
			union |= mask
		}
		white, black := b.Occupancy()
		assert.Equal(t, union&whiteHome, white)
		assert.Equal(t, union&blackHome, black)
	}
}

func TestEnumWireForms(t *testing.T) {
	assert.Equal(t, "w", White.String())
	assert.Equal(t, "b", Black.String())
	assert.Equal(t, Black, White.Other())
	assert.Equal(t, White, Black.Other())

	got := map[Kind]string{Pawn: "p", Knight: "n", Bishop: "b", Rook: "r", Queen: "q", King: "k"}
	for k, want := range got {
		assert.Equal(t, want, k.String())
	}
}
