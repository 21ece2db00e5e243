// Package bitboard holds the piece positions of one game as per-kind bit
// masks over the 64 squares, index 0 = a1 through 63 = h8. It is a raw
// relocation primitive: Apply moves whatever sits on a square without any
// rule checking. Turn and ownership gating live in the hub.
package bitboard

// Side is the closed set of player colors.
type Side uint8

const (
	White Side = iota
	Black
)

// String returns the single-letter wire form.
func (s Side) String() string {
	if s == Black {
		return "b"
	}
	return "w"
}

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == White {
		return Black
	}
	return White
}

// Kind is the closed set of piece kinds.
type Kind uint8

const (
	Pawn Kind = iota
	Knight
	Bishop
	Rook
	Queen
	King
	kindCount
)

// String returns the single-letter wire form.
func (k Kind) String() string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	}
	return "?"
}

// Move relocates whatever occupies From onto To.
type Move struct {
	From int
	To   int
}

// Piece is one occupied square, used for serialization to clients.
type Piece struct {
	Kind   Kind
	Side   Side
	Square int
}

const (
	whiteHome uint64 = 0x000000000000FFFF
	blackHome uint64 = 0xFFFF000000000000
)

// Board keeps one mask per piece kind, one full ownership mask per side, and
// the two home-half occupancy summaries. A square is set in at most one kind
// mask and belongs to at most one side at a time.
type Board struct {
	kinds [kindCount]uint64
	sides [2]uint64 // ownership of every occupied square
	white uint64    // occupancy summary, squares 0-15 only
	black uint64    // occupancy summary, squares 48-63 only
}

// New returns a board in the standard starting arrangement.
func New() *Board {
	b := &Board{}
	b.kinds[Pawn] = 0x00FF00000000FF00
	b.kinds[Rook] = 0x8100000000000081
	b.kinds[Knight] = 0x4200000000000042
	b.kinds[Bishop] = 0x2400000000000024
	b.kinds[Queen] = 0x0800000000000008
	b.kinds[King] = 0x1000000000000010
	b.sides[White] = whiteHome
	b.sides[Black] = blackHome
	b.updateOccupancy()
	return b
}

// Apply relocates the piece on m.From to m.To. If no kind mask has a bit at
// m.From (or either index is out of range) it returns false and the board is
// untouched. The destination is cleared from every kind mask first, which is
// how a capture is modeled: whatever stood there is gone unconditionally.
func (b *Board) Apply(m Move) bool {
	if m.From < 0 || m.From > 63 || m.To < 0 || m.To > 63 {
		return false
	}
	from := uint64(1) << m.From
	to := uint64(1) << m.To

	moving := kindCount
	for k := Pawn; k < kindCount; k++ {
		if b.kinds[k]&from != 0 {
			moving = k
			break
		}
	}
	if moving == kindCount {
		return false
	}

	b.kinds[moving] &^= from
	for k := Pawn; k < kindCount; k++ {
		b.kinds[k] &^= to
	}
	b.kinds[moving] |= to

	mover := White
	if b.sides[Black]&from != 0 {
		mover = Black
	}
	b.sides[White] &^= from | to
	b.sides[Black] &^= from | to
	b.sides[mover] |= to

	b.updateOccupancy()
	return true
}

// updateOccupancy recomputes the side summaries as the union of all kind
// masks restricted to each side's home sixteen squares.
func (b *Board) updateOccupancy() {
	all := uint64(0)
	for k := Pawn; k < kindCount; k++ {
		all |= b.kinds[k]
	}
	b.white = all & whiteHome
	b.black = all & blackHome
}

// Pieces returns every occupied square in ascending square order.
func (b *Board) Pieces() []Piece {
	out := make([]Piece, 0, 32)
	for sq := 0; sq < 64; sq++ {
		bit := uint64(1) << sq
		for k := Pawn; k < kindCount; k++ {
			if b.kinds[k]&bit == 0 {
				continue
			}
			side := White
			if b.sides[Black]&bit != 0 {
				side = Black
			}
			out = append(out, Piece{Kind: k, Side: side, Square: sq})
			break
		}
	}
	return out
}

// Occupancy returns the home-half white and black summaries.
func (b *Board) Occupancy() (white, black uint64) { return b.white, b.black }

// KindMask returns the mask of the given piece kind.
func (b *Board) KindMask(k Kind) uint64 {
	if k >= kindCount {
		return 0
	}
	return b.kinds[k]
}
